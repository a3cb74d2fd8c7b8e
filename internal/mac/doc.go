// Package mac normalises hardware addresses to a single canonical form.
//
// Every MAC that enters the system, whether from the HTTP API, the router
// poller, or the people file, passes through Normalize before being used
// as a key. This keeps the devices table free of case or separator
// duplicates (aa-bb-cc-dd-ee-ff and AA:BB:CC:DD:EE:FF are the same device).
package mac
