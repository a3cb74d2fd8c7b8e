package presence

import "errors"

// Sentinel errors for presence operations.
// Use errors.Is to check for these conditions.
var (
	// ErrRouterNotConfigured indicates no router connection is configured.
	ErrRouterNotConfigured = errors.New("presence: router not configured")

	// ErrRouterUnavailable indicates the router could not be queried.
	ErrRouterUnavailable = errors.New("presence: router unavailable")
)
