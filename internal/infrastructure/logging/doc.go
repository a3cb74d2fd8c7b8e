// Package logging provides structured logging for Home Presence Core.
//
// It wraps the standard library's log/slog with configuration-driven
// format/level selection and default service fields.
package logging
