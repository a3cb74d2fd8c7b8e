package device

import "errors"

// Sentinel errors for device operations.
// Use errors.Is to check for these conditions.
var (
	// ErrDeviceNotFound indicates the requested device does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrOwnerNotFound indicates an owner reference points at a
	// non-existent owner.
	ErrOwnerNotFound = errors.New("device: referenced owner not found")

	// ErrLabelTooLong indicates a label over the maximum length.
	ErrLabelTooLong = errors.New("device: label exceeds maximum length")
)
