// Package api provides the HTTP REST API for Home Presence Core.
//
// It exposes device registry, owner, and presence endpoints under
// /api/v1 for dashboards and scripts. The server follows the same
// lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
