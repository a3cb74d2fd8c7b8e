package device

import "database/sql"

// Presence type values stored in the devices table.
const (
	// PresencePrimary marks a device that strongly indicates its owner is
	// home (a phone, a watch).
	PresencePrimary = "primary"

	// PresenceSecondary marks a device loosely tied to its owner (a tablet
	// that stays on a desk).
	PresenceSecondary = "secondary"
)

// maxLabelLength caps user-supplied labels.
const maxLabelLength = 200

// Device is a known hardware address and everything recorded about it.
// All fields except MAC are optional; a device row can exist with nothing
// but its address (seen on the network, never labelled).
type Device struct {
	// MAC is the canonical hardware address (uppercase, colon separated).
	// Primary key.
	MAC string `json:"mac"`

	// Label is the user-assigned display name.
	Label *string `json:"label"`

	// Band is the radio band the device was last seen on (e.g. "2.4GHz").
	Band *string `json:"band"`

	// IP is the last known address on the local network.
	IP *string `json:"ip"`

	// OwnerID references device_owners.id. Nil when unassigned.
	OwnerID *int64 `json:"owner_id"`

	// OwnerName is the joined owner name, populated on reads only.
	OwnerName *string `json:"owner_name"`

	// PresenceType is PresencePrimary, PresenceSecondary, or nil.
	PresenceType *string `json:"presence_type"`
}

// Update describes a partial change to a device. Each field is tri-state:
//
//   - nil pointer: leave the column unchanged
//   - Valid = false: clear the column to NULL
//   - Valid = true: set the column to the carried value
//
// This mirrors a JSON body where an absent key means "don't touch" and an
// explicit null means "clear".
type Update struct {
	Label        *sql.NullString
	Band         *sql.NullString
	IP           *sql.NullString
	OwnerID      *sql.NullInt64
	PresenceType *sql.NullString
}

// isEmpty reports whether the update touches no fields.
func (u Update) isEmpty() bool {
	return u.Label == nil && u.Band == nil && u.IP == nil &&
		u.OwnerID == nil && u.PresenceType == nil
}

// NullString builds a set-to-value update field.
func NullString(s string) *sql.NullString {
	return &sql.NullString{String: s, Valid: true}
}

// ClearString builds a clear-to-NULL update field.
func ClearString() *sql.NullString {
	return &sql.NullString{}
}

// NullInt64 builds a set-to-value update field.
func NullInt64(n int64) *sql.NullInt64 {
	return &sql.NullInt64{Int64: n, Valid: true}
}

// ClearInt64 builds a clear-to-NULL update field.
func ClearInt64() *sql.NullInt64 {
	return &sql.NullInt64{}
}
