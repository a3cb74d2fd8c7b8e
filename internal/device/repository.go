package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// List retrieves all devices ordered by MAC, with owner names joined.
	List(ctx context.Context) ([]Device, error)

	// Get retrieves a device by canonical MAC.
	// Returns ErrDeviceNotFound if the device does not exist.
	Get(ctx context.Context, mac string) (*Device, error)

	// Upsert creates the device row if absent and applies the partial
	// update atomically, returning the resulting row. Fields the update
	// does not carry are left untouched; existing data is never clobbered
	// by omission.
	// Returns ErrOwnerNotFound if the update references a missing owner.
	Upsert(ctx context.Context, mac string, upd Update) (*Device, error)

	// SetOwner assigns or clears (nil) a device's owner, creating the
	// device row if it does not exist yet.
	// Returns ErrOwnerNotFound if the owner id is unknown.
	SetOwner(ctx context.Context, mac string, ownerID *int64) (*Device, error)

	// Delete removes a device by canonical MAC.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, mac string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// deviceColumns is the read projection shared by all queries.
const deviceColumns = `
	d.mac, d.label, d.band, d.ip, d.owner_id, o.name, d.presence_type`

// List retrieves all devices ordered by MAC, with owner names joined.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `
		SELECT` + deviceColumns + `
		FROM devices d
		LEFT JOIN device_owners o ON o.id = d.owner_id
		ORDER BY d.mac`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// Get retrieves a device by canonical MAC.
func (r *SQLiteRepository) Get(ctx context.Context, mac string) (*Device, error) {
	return getDevice(ctx, r.db, mac)
}

// Upsert creates the device row if absent and applies the partial update.
//
// The whole operation runs in one transaction:
//  1. INSERT OR IGNORE establishes the row keyed by MAC
//  2. Owner references are verified against device_owners
//  3. A single UPDATE applies exactly the fields the update carries
//  4. The final row is read back with the owner name joined
//
// A concurrent writer therefore never observes a half-applied update, and
// two writers touching different fields of the same device both land.
func (r *SQLiteRepository) Upsert(ctx context.Context, mac string, upd Update) (*Device, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting upsert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO devices (mac) VALUES (?)`, mac); err != nil {
		return nil, fmt.Errorf("inserting device row: %w", err)
	}

	if upd.OwnerID != nil && upd.OwnerID.Valid {
		if err := ownerExists(ctx, tx, upd.OwnerID.Int64); err != nil {
			return nil, err
		}
	}

	if !upd.isEmpty() {
		query, args := buildUpdateStatement(mac, upd)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("applying device update: %w", err)
		}
	}

	device, err := getDevice(ctx, tx, mac)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upsert: %w", err)
	}
	return device, nil
}

// SetOwner assigns or clears a device's owner. An unseen MAC gets a bare
// row first, so assigning an owner is enough to register a device.
func (r *SQLiteRepository) SetOwner(ctx context.Context, mac string, ownerID *int64) (*Device, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting owner transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if ownerID != nil {
		if err := ownerExists(ctx, tx, *ownerID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO devices (mac) VALUES (?)`, mac); err != nil {
		return nil, fmt.Errorf("inserting device row: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET owner_id = ? WHERE mac = ?`, nullableInt64(ownerID), mac); err != nil {
		return nil, fmt.Errorf("updating device owner: %w", err)
	}

	device, err := getDevice(ctx, tx, mac)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing owner update: %w", err)
	}
	return device, nil
}

// Delete removes a device by canonical MAC.
func (r *SQLiteRepository) Delete(ctx context.Context, mac string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE mac = ?`, mac)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// queryer abstracts *sql.DB and *sql.Tx for shared read helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getDevice reads one device with its owner name joined.
func getDevice(ctx context.Context, q queryer, mac string) (*Device, error) {
	query := `
		SELECT` + deviceColumns + `
		FROM devices d
		LEFT JOIN device_owners o ON o.id = d.owner_id
		WHERE d.mac = ?`

	device, err := scanDeviceRow(q.QueryRowContext(ctx, query, mac))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return device, nil
}

// ownerExists verifies an owner id, returning ErrOwnerNotFound when absent.
func ownerExists(ctx context.Context, q queryer, id int64) error {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM device_owners WHERE id = ?`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOwnerNotFound
		}
		return fmt.Errorf("verifying owner: %w", err)
	}
	return nil
}

// buildUpdateStatement composes an UPDATE touching only the fields the
// update carries. Column names are fixed strings; only values are bound.
func buildUpdateStatement(mac string, upd Update) (string, []any) {
	var (
		sets []string
		args []any
	)

	if upd.Label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *upd.Label)
	}
	if upd.Band != nil {
		sets = append(sets, "band = ?")
		args = append(args, *upd.Band)
	}
	if upd.IP != nil {
		sets = append(sets, "ip = ?")
		args = append(args, *upd.IP)
	}
	if upd.OwnerID != nil {
		sets = append(sets, "owner_id = ?")
		args = append(args, *upd.OwnerID)
	}
	if upd.PresenceType != nil {
		sets = append(sets, "presence_type = ?")
		args = append(args, *upd.PresenceType)
	}

	query := "UPDATE devices SET " + strings.Join(sets, ", ") + " WHERE mac = ?"
	args = append(args, mac)
	return query, args
}

// rowScanner abstracts sql.Row and sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans the shared projection into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var (
		d                       Device
		label, band, ip         sql.NullString
		ownerName, presenceType sql.NullString
		ownerID                 sql.NullInt64
	)

	err := scanner.Scan(&d.MAC, &label, &band, &ip, &ownerID, &ownerName, &presenceType)
	if err != nil {
		return nil, err
	}

	d.Label = stringPtr(label)
	d.Band = stringPtr(band)
	d.IP = stringPtr(ip)
	d.OwnerName = stringPtr(ownerName)
	d.PresenceType = stringPtr(presenceType)
	if ownerID.Valid {
		d.OwnerID = &ownerID.Int64
	}

	return &d, nil
}

// stringPtr converts a NullString to an optional string pointer.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// nullableInt64 converts an optional int64 pointer to a sql.NullInt64.
func nullableInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
