package presence

import "time"

// Row is one reconciled device in a presence snapshot.
//
// The router reports the same facts under several names depending on
// firmware; by the time a Row exists, all of that has been collapsed:
// one connectivity flag, one band, one address, one display name.
type Row struct {
	// MAC is the canonical hardware address.
	MAC string `json:"mac"`

	// Display is the best available name for the device:
	// stored label, then people-file label, then the router's nickname
	// or hostname, then the MAC itself.
	Display string `json:"display"`

	// Online reports whether the router currently sees the device.
	Online bool `json:"online"`

	// Labelled reports whether Display came from a curated source
	// (stored label or people file) rather than router guesswork.
	Labelled bool `json:"labelled"`

	Band *string `json:"band"`
	IP   *string `json:"ip"`
	RSSI *int    `json:"rssi"`

	OwnerID      *int64  `json:"owner_id"`
	OwnerName    *string `json:"owner_name"`
	PresenceType *string `json:"presence_type"`
}

// OwnerState is one owner's occupancy, derived from their devices.
type OwnerState struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// Home is true when at least one of the owner's presence-bearing
	// devices is online. Primary devices decide; secondary devices only
	// count for owners who have no primary device at all.
	Home bool `json:"home"`

	// OnlineDevices lists the display names of the owner's online devices.
	OnlineDevices []string `json:"online_devices"`
}

// Snapshot is a full reconciliation of router state against the registry.
type Snapshot struct {
	TakenAt time.Time `json:"taken_at"`

	// Devices are the clients the router reported, reconciled and sorted
	// by display name.
	Devices []Row `json:"devices"`

	// Home and Away partition Devices by connectivity.
	Home []Row `json:"home"`
	Away []Row `json:"away"`

	// Owners is the occupancy state of every person owner.
	Owners []OwnerState `json:"owners"`

	// Unknown lists MACs that nobody has labelled yet, the queue of
	// devices waiting for a human to name them.
	Unknown []string `json:"unknown"`
}
