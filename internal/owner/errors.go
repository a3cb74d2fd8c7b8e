package owner

import "errors"

// Sentinel errors for owner operations.
// Use errors.Is to check for these conditions.
var (
	// ErrOwnerNotFound indicates the requested owner does not exist.
	ErrOwnerNotFound = errors.New("owner: not found")

	// ErrOwnerProtected indicates an attempt to delete the reserved owner.
	ErrOwnerProtected = errors.New("owner: reserved owner cannot be deleted")

	// ErrNameRequired indicates a missing or blank owner name.
	ErrNameRequired = errors.New("owner: name is required")

	// ErrNameTooLong indicates a name over the maximum length.
	ErrNameTooLong = errors.New("owner: name exceeds maximum length")

	// ErrNameTaken indicates another owner already has the name.
	ErrNameTaken = errors.New("owner: name already in use")

	// ErrKindInvalid indicates a kind other than person or home.
	ErrKindInvalid = errors.New("owner: invalid kind")
)
