package asuswrt

import "errors"

// Sentinel errors for router communication.
// Use errors.Is to check for these conditions.
var (
	// ErrAuthFailed indicates the router rejected the credentials.
	ErrAuthFailed = errors.New("asuswrt: authentication failed")

	// ErrRequestFailed indicates the router was unreachable or returned
	// an unusable response.
	ErrRequestFailed = errors.New("asuswrt: request failed")
)
