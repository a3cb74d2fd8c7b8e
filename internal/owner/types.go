package owner

// ReservedID is the owner id of the built-in "Home" owner. It is seeded at
// schema setup and can never be deleted; devices that belong to the house
// itself (thermostats, cameras, speakers) are assigned to it.
const ReservedID int64 = 1

// Owner kinds.
const (
	// KindPerson is a household member.
	KindPerson = "person"

	// KindHome is the reserved house owner. Exactly one exists.
	KindHome = "home"
)

// maxNameLength caps owner names.
const maxNameLength = 100

// Owner is someone (or the house) that devices can be assigned to.
type Owner struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`

	// DeviceCount is the number of devices assigned, populated on list reads.
	DeviceCount int64 `json:"device_count"`
}
