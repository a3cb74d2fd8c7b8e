package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// The devices table has grown over this system's lifetime: label-only, then an
// owner reference, then band/ip, then a presence type. Rather than a chain of
// ad hoc column checks, the current on-disk shape is inspected once at startup
// and diffed against the declared target schema below; the minimal safe
// transition (additive or rebuild) is then executed in a single transaction.

// targetDevicesSchema is the full current devices schema.
//
// Structural guarantees that cannot be retrofitted in place with ALTER TABLE:
//   - label must be nullable (historic schemas declared it NOT NULL)
//   - owner_id must reference device_owners with ON DELETE SET NULL
//   - presence_type carries a CHECK constraint
//
// Any of these missing forces a rebuild migration. Plain nullable columns
// (band, ip) can be added in place.
const targetDevicesSchema = `
	CREATE TABLE %s (
		mac           TEXT PRIMARY KEY,
		label         TEXT,
		band          TEXT,
		ip            TEXT,
		owner_id      INTEGER REFERENCES device_owners(id) ON DELETE SET NULL,
		presence_type TEXT CHECK (presence_type IN ('primary', 'secondary'))
	)`

// ownerTableSchema holds device owners. Seeded with a non-deletable "Home"
// owner (id 1) on every boot; the INSERT OR IGNORE makes the seed idempotent.
const ownerTableSchema = `
	CREATE TABLE IF NOT EXISTS device_owners (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'person' CHECK (kind IN ('person', 'home'))
	)`

const seedReservedOwner = `INSERT OR IGNORE INTO device_owners (id, name, kind) VALUES (1, 'Home', 'home')`

const ownerIndex = `CREATE INDEX IF NOT EXISTS idx_devices_owner_id ON devices(owner_id)`

// addableColumns are target columns that can be added with ALTER TABLE when
// missing: nullable, no constraints, no data copy required.
var addableColumns = []string{"band", "ip"}

// migrationKind classifies the transition from the observed devices shape to
// the target schema.
type migrationKind int

const (
	// migrationCreate: table does not exist, create with full schema.
	migrationCreate migrationKind = iota

	// migrationNone: table already matches the target shape.
	migrationNone

	// migrationAdditive: only addable columns are missing.
	migrationAdditive

	// migrationRebuild: a structural guarantee is missing; create a new
	// table, copy all rows, and swap atomically.
	migrationRebuild
)

// columnInfo describes one column from PRAGMA table_info.
type columnInfo struct {
	name    string
	notNull bool
}

// tableShape describes the observed devices table.
type tableShape struct {
	exists  bool
	columns map[string]columnInfo
	ownerFK bool // owner_id references device_owners with ON DELETE SET NULL
}

// EnsureSchema brings the database to the current schema version.
//
// It runs once at startup, not per-request:
//  1. Creates the device_owners table and seeds the reserved "Home" owner
//     (id 1) if absent - idempotent, safe on every boot.
//  2. Inspects the devices table's columns and foreign keys.
//  3. Executes the minimal safe migration (create, additive, or rebuild).
//  4. Ensures the owner_id index exists.
//
// Any failure aborts the enclosing transaction and is fatal to startup;
// the process must not run against a partially migrated schema.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If any schema step fails (partial work is rolled back)
func (db *DB) EnsureSchema(ctx context.Context) error {
	if err := db.ensureOwnerTable(ctx); err != nil {
		return fmt.Errorf("ensuring owner table: %w", err)
	}

	shape, err := db.inspectDevicesTable(ctx)
	if err != nil {
		return fmt.Errorf("inspecting devices table: %w", err)
	}

	kind, missing := planDevicesMigration(shape)

	switch kind {
	case migrationCreate:
		if err := db.createDevicesTable(ctx); err != nil {
			return fmt.Errorf("creating devices table: %w", err)
		}
	case migrationAdditive:
		if err := db.addDevicesColumns(ctx, missing); err != nil {
			return fmt.Errorf("adding devices columns: %w", err)
		}
	case migrationRebuild:
		if err := db.rebuildDevicesTable(ctx, shape); err != nil {
			return fmt.Errorf("rebuilding devices table: %w", err)
		}
	case migrationNone:
		// Already at target shape.
	}

	if _, err := db.ExecContext(ctx, ownerIndex); err != nil {
		return fmt.Errorf("ensuring owner index: %w", err)
	}

	return nil
}

// ensureOwnerTable creates the device_owners table and seeds the reserved owner.
func (db *DB) ensureOwnerTable(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, ownerTableSchema); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, seedReservedOwner); err != nil {
		return err
	}
	return nil
}

// inspectDevicesTable reads the on-disk shape of the devices table.
func (db *DB) inspectDevicesTable(ctx context.Context) (tableShape, error) {
	shape := tableShape{columns: make(map[string]columnInfo)}

	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'devices'`,
	).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return shape, nil
		}
		return shape, fmt.Errorf("querying sqlite_master: %w", err)
	}
	shape.exists = true

	// Column set and NOT NULL flags
	rows, err := db.QueryContext(ctx, `PRAGMA table_info('devices')`)
	if err != nil {
		return shape, fmt.Errorf("reading table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			colName, colType string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return shape, fmt.Errorf("scanning table info: %w", err)
		}
		shape.columns[colName] = columnInfo{name: colName, notNull: notNull == 1}
	}
	if err := rows.Err(); err != nil {
		return shape, fmt.Errorf("iterating table info: %w", err)
	}

	// Owner foreign key presence and delete behaviour
	fkRows, err := db.QueryContext(ctx, `PRAGMA foreign_key_list('devices')`)
	if err != nil {
		return shape, fmt.Errorf("reading foreign keys: %w", err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var (
			id, seq                   int
			table, from               string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)
		if err := fkRows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return shape, fmt.Errorf("scanning foreign key: %w", err)
		}
		if table == "device_owners" && from == "owner_id" && strings.EqualFold(onDelete, "SET NULL") {
			shape.ownerFK = true
		}
	}
	if err := fkRows.Err(); err != nil {
		return shape, fmt.Errorf("iterating foreign keys: %w", err)
	}

	return shape, nil
}

// planDevicesMigration diffs the observed shape against the target schema and
// returns the minimal safe transition. For additive migrations, missing lists
// the columns to add.
func planDevicesMigration(shape tableShape) (kind migrationKind, missing []string) {
	if !shape.exists {
		return migrationCreate, nil
	}

	label, hasLabel := shape.columns["label"]
	_, hasOwnerID := shape.columns["owner_id"]
	_, hasPresenceType := shape.columns["presence_type"]

	// Structural guarantees that ALTER TABLE cannot retrofit.
	needsRebuild := !hasLabel || label.notNull ||
		!hasOwnerID || !shape.ownerFK ||
		!hasPresenceType // requires a CHECK constraint

	if needsRebuild {
		return migrationRebuild, nil
	}

	for _, col := range addableColumns {
		if _, ok := shape.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return migrationAdditive, missing
	}

	return migrationNone, nil
}

// createDevicesTable creates the devices table with the full current schema.
func (db *DB) createDevicesTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(targetDevicesSchema, "devices"))
	return err
}

// addDevicesColumns adds missing nullable columns in place, inside one
// transaction so a multi-column addition is all-or-nothing.
func (db *DB) addDevicesColumns(ctx context.Context, missing []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, col := range missing {
		stmt := fmt.Sprintf("ALTER TABLE devices ADD COLUMN %s TEXT", col)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding column %s: %w", col, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing additive migration: %w", err)
	}
	return nil
}

// rebuildDevicesTable creates a new table with the full schema, copies all
// existing rows translating absent columns to NULL and empty labels to NULL,
// and atomically replaces the old table. The whole operation runs inside a
// single transaction that rolls back entirely on any failure.
func (db *DB) rebuildDevicesTable(ctx context.Context, shape tableShape) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(targetDevicesSchema, "devices__new")); err != nil {
		return fmt.Errorf("creating replacement table: %w", err)
	}

	copyStmt := fmt.Sprintf(`
		INSERT INTO devices__new (mac, label, band, ip, owner_id, presence_type)
		SELECT mac, %s, %s, %s, %s, %s FROM devices`,
		labelCopyExpr(shape),
		columnCopyExpr(shape, "band"),
		columnCopyExpr(shape, "ip"),
		columnCopyExpr(shape, "owner_id"),
		presenceTypeCopyExpr(shape),
	)
	if _, err := tx.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("copying device rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE devices`); err != nil {
		return fmt.Errorf("dropping old table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE devices__new RENAME TO devices`); err != nil {
		return fmt.Errorf("renaming replacement table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild migration: %w", err)
	}
	return nil
}

// labelCopyExpr translates empty-string labels to NULL on copy.
func labelCopyExpr(shape tableShape) string {
	if _, ok := shape.columns["label"]; ok {
		return "NULLIF(label, '')"
	}
	return "NULL"
}

// columnCopyExpr carries a column over verbatim if present, else NULL.
func columnCopyExpr(shape tableShape, col string) string {
	if _, ok := shape.columns[col]; ok {
		return col
	}
	return "NULL"
}

// presenceTypeCopyExpr translates legacy presence type encodings on copy.
// Historic schemas stored 1/2 integers; the target stores enumerated text.
// Anything unrecognised becomes NULL (unset), never a constraint violation.
func presenceTypeCopyExpr(shape tableShape) string {
	if _, ok := shape.columns["presence_type"]; !ok {
		return "NULL"
	}
	return `CASE
		WHEN presence_type IN (1, '1', 'primary') THEN 'primary'
		WHEN presence_type IN (2, '2', 'secondary') THEN 'secondary'
		ELSE NULL
	END`
}
