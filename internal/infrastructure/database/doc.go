// Package database provides SQLite connection management and schema
// lifecycle for Home Presence Core.
//
// It handles:
//   - Connection setup with WAL mode, busy timeout, and foreign keys
//   - Schema inspection and migration (additive or full rebuild)
//   - Seeding of the reserved "Home" owner
//   - Health checks for monitoring
//
// The schema migration logic lives in schema.go: at startup the devices
// table's on-disk shape is inspected with PRAGMA table_info and
// foreign_key_list, diffed against the target schema, and upgraded with
// the minimal safe transition inside a single transaction.
package database
