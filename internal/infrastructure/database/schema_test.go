package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// openTestDB opens a database in a temp directory, cleaned up with the test.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func TestEnsureSchema_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	// Reserved owner seeded
	var name, kind string
	err := db.QueryRowContext(ctx,
		`SELECT name, kind FROM device_owners WHERE id = 1`).Scan(&name, &kind)
	if err != nil {
		t.Fatalf("querying reserved owner: %v", err)
	}
	if name != "Home" || kind != "home" {
		t.Errorf("reserved owner = (%q, %q), want (Home, home)", name, kind)
	}

	// Devices table at target shape
	shape, err := db.inspectDevicesTable(ctx)
	if err != nil {
		t.Fatalf("inspectDevicesTable() error = %v", err)
	}
	kindGot, _ := planDevicesMigration(shape)
	if kindGot != migrationNone {
		t.Errorf("fresh schema plan = %v, want migrationNone", kindGot)
	}

	// Idempotent on second run
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() second run error = %v", err)
	}
}

func TestEnsureSchema_RebuildFromLegacyNotNullLabel(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Oldest known shape: mac + mandatory label, nothing else.
	mustExec(t, db, `CREATE TABLE devices (mac TEXT PRIMARY KEY, label TEXT NOT NULL)`)
	mustExec(t, db, `INSERT INTO devices (mac, label) VALUES ('aa:bb:cc:dd:ee:ff', 'laptop')`)
	mustExec(t, db, `INSERT INTO devices (mac, label) VALUES ('11:22:33:44:55:66', '')`)

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	// All rows survived the rebuild
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&count); err != nil {
		t.Fatalf("counting devices: %v", err)
	}
	if count != 2 {
		t.Errorf("device count after rebuild = %d, want 2", count)
	}

	// Non-empty label carried over verbatim
	var label sql.NullString
	if err := db.QueryRowContext(ctx,
		`SELECT label FROM devices WHERE mac = 'aa:bb:cc:dd:ee:ff'`).Scan(&label); err != nil {
		t.Fatalf("querying label: %v", err)
	}
	if !label.Valid || label.String != "laptop" {
		t.Errorf("label = %+v, want laptop", label)
	}

	// Empty label normalised to NULL
	if err := db.QueryRowContext(ctx,
		`SELECT label FROM devices WHERE mac = '11:22:33:44:55:66'`).Scan(&label); err != nil {
		t.Fatalf("querying empty label: %v", err)
	}
	if label.Valid {
		t.Errorf("empty label = %q, want NULL", label.String)
	}

	// Label column is now nullable and new columns exist
	shape, err := db.inspectDevicesTable(ctx)
	if err != nil {
		t.Fatalf("inspectDevicesTable() error = %v", err)
	}
	if shape.columns["label"].notNull {
		t.Error("label still NOT NULL after rebuild")
	}
	for _, col := range []string{"band", "ip", "owner_id", "presence_type"} {
		if _, ok := shape.columns[col]; !ok {
			t.Errorf("column %s missing after rebuild", col)
		}
	}
	if !shape.ownerFK {
		t.Error("owner foreign key missing after rebuild")
	}
}

func TestEnsureSchema_RebuildTranslatesLegacyPresenceType(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Mid-vintage shape: integer presence types, no owner reference.
	// The missing owner_id forces a rebuild, which must translate values.
	mustExec(t, db, `CREATE TABLE devices (
		mac TEXT PRIMARY KEY,
		label TEXT,
		band TEXT,
		ip TEXT,
		presence_type INTEGER
	)`)
	mustExec(t, db, `INSERT INTO devices (mac, presence_type) VALUES ('aa:aa:aa:aa:aa:01', 1)`)
	mustExec(t, db, `INSERT INTO devices (mac, presence_type) VALUES ('aa:aa:aa:aa:aa:02', 2)`)
	mustExec(t, db, `INSERT INTO devices (mac, presence_type) VALUES ('aa:aa:aa:aa:aa:03', 7)`)
	mustExec(t, db, `INSERT INTO devices (mac, presence_type) VALUES ('aa:aa:aa:aa:aa:04', NULL)`)

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	tests := []struct {
		mac  string
		want sql.NullString
	}{
		{"aa:aa:aa:aa:aa:01", sql.NullString{String: "primary", Valid: true}},
		{"aa:aa:aa:aa:aa:02", sql.NullString{String: "secondary", Valid: true}},
		{"aa:aa:aa:aa:aa:03", sql.NullString{}},
		{"aa:aa:aa:aa:aa:04", sql.NullString{}},
	}

	for _, tt := range tests {
		var got sql.NullString
		if err := db.QueryRowContext(ctx,
			`SELECT presence_type FROM devices WHERE mac = ?`, tt.mac).Scan(&got); err != nil {
			t.Fatalf("querying %s: %v", tt.mac, err)
		}
		if got != tt.want {
			t.Errorf("presence_type for %s = %+v, want %+v", tt.mac, got, tt.want)
		}
	}
}

func TestEnsureSchema_AdditiveAddsMissingColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Shape with all structural guarantees but missing band/ip.
	mustExec(t, db, `CREATE TABLE device_owners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'person' CHECK (kind IN ('person', 'home'))
	)`)
	mustExec(t, db, `CREATE TABLE devices (
		mac TEXT PRIMARY KEY,
		label TEXT,
		owner_id INTEGER REFERENCES device_owners(id) ON DELETE SET NULL,
		presence_type TEXT CHECK (presence_type IN ('primary', 'secondary'))
	)`)
	mustExec(t, db, `INSERT INTO devices (mac, label) VALUES ('aa:bb:cc:dd:ee:ff', 'phone')`)

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	shape, err := db.inspectDevicesTable(ctx)
	if err != nil {
		t.Fatalf("inspectDevicesTable() error = %v", err)
	}
	for _, col := range []string{"band", "ip"} {
		if _, ok := shape.columns[col]; !ok {
			t.Errorf("column %s not added", col)
		}
	}

	// Existing data untouched
	var label string
	if err := db.QueryRowContext(ctx,
		`SELECT label FROM devices WHERE mac = 'aa:bb:cc:dd:ee:ff'`).Scan(&label); err != nil {
		t.Fatalf("querying label: %v", err)
	}
	if label != "phone" {
		t.Errorf("label = %q, want phone", label)
	}
}

func TestEnsureSchema_OwnerDeleteClearsReference(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	mustExec(t, db, `INSERT INTO device_owners (name) VALUES ('alice')`)
	var ownerID int64
	if err := db.QueryRowContext(ctx,
		`SELECT id FROM device_owners WHERE name = 'alice'`).Scan(&ownerID); err != nil {
		t.Fatalf("querying owner id: %v", err)
	}
	mustExec(t, db, `INSERT INTO devices (mac, owner_id) VALUES ('aa:bb:cc:dd:ee:ff', ?)`, ownerID)

	mustExec(t, db, `DELETE FROM device_owners WHERE id = ?`, ownerID)

	var got sql.NullInt64
	if err := db.QueryRowContext(ctx,
		`SELECT owner_id FROM devices WHERE mac = 'aa:bb:cc:dd:ee:ff'`).Scan(&got); err != nil {
		t.Fatalf("querying owner_id: %v", err)
	}
	if got.Valid {
		t.Errorf("owner_id = %d after owner delete, want NULL", got.Int64)
	}
}

func TestPlanDevicesMigration(t *testing.T) {
	fullColumns := func() map[string]columnInfo {
		return map[string]columnInfo{
			"mac":           {name: "mac"},
			"label":         {name: "label"},
			"band":          {name: "band"},
			"ip":            {name: "ip"},
			"owner_id":      {name: "owner_id"},
			"presence_type": {name: "presence_type"},
		}
	}

	tests := []struct {
		name        string
		shape       tableShape
		wantKind    migrationKind
		wantMissing int
	}{
		{
			name:     "no table",
			shape:    tableShape{},
			wantKind: migrationCreate,
		},
		{
			name:     "target shape",
			shape:    tableShape{exists: true, columns: fullColumns(), ownerFK: true},
			wantKind: migrationNone,
		},
		{
			name: "label not null",
			shape: func() tableShape {
				cols := fullColumns()
				cols["label"] = columnInfo{name: "label", notNull: true}
				return tableShape{exists: true, columns: cols, ownerFK: true}
			}(),
			wantKind: migrationRebuild,
		},
		{
			name: "missing owner column",
			shape: func() tableShape {
				cols := fullColumns()
				delete(cols, "owner_id")
				return tableShape{exists: true, columns: cols}
			}(),
			wantKind: migrationRebuild,
		},
		{
			name:     "owner column without foreign key",
			shape:    tableShape{exists: true, columns: fullColumns(), ownerFK: false},
			wantKind: migrationRebuild,
		},
		{
			name: "missing presence type",
			shape: func() tableShape {
				cols := fullColumns()
				delete(cols, "presence_type")
				return tableShape{exists: true, columns: cols, ownerFK: true}
			}(),
			wantKind: migrationRebuild,
		},
		{
			name: "missing band and ip only",
			shape: func() tableShape {
				cols := fullColumns()
				delete(cols, "band")
				delete(cols, "ip")
				return tableShape{exists: true, columns: cols, ownerFK: true}
			}(),
			wantKind:    migrationAdditive,
			wantMissing: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, missing := planDevicesMigration(tt.shape)
			if kind != tt.wantKind {
				t.Errorf("planDevicesMigration() kind = %v, want %v", kind, tt.wantKind)
			}
			if len(missing) != tt.wantMissing {
				t.Errorf("planDevicesMigration() missing = %v, want %d columns", missing, tt.wantMissing)
			}
		})
	}
}

// mustExec executes SQL directly, failing the test on error.
func mustExec(t *testing.T, db *DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
