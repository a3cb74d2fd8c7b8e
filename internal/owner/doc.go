// Package owner manages the people (and the house itself) that devices
// belong to.
//
// Owners are deliberately simple rows: an id, a unique name, and a kind.
// The reserved "Home" owner (id 1, kind home) is seeded at schema setup
// and cannot be deleted. Deleting any other owner detaches their devices
// rather than removing them; the device history outlives the person.
package owner
