// Package device manages the registry of known hardware addresses.
//
// A device is anything with a MAC: labelled or not, owned or not. Rows are
// created implicitly the first time an address is written (by the HTTP API
// or the router poller) and enriched field by field afterwards. Partial
// updates are first class: an update only ever touches the fields it
// carries, so a poller refreshing band/ip never clobbers a user's label.
//
// The package follows the repository pattern: Repository defines the
// persistence interface, SQLiteRepository implements it, and Registry
// layers MAC normalisation and input sanitisation on top.
package device
