package owner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository defines the interface for owner persistence operations.
type Repository interface {
	// List retrieves all owners, the reserved home owner first, then
	// people alphabetically. Device counts are included.
	List(ctx context.Context) ([]Owner, error)

	// Get retrieves an owner by id.
	// Returns ErrOwnerNotFound if the owner does not exist.
	Get(ctx context.Context, id int64) (*Owner, error)

	// Create adds an owner with the given name and kind. An empty kind
	// defaults to person.
	// Returns ErrNameRequired, ErrNameTooLong, ErrNameTaken, or ErrKindInvalid.
	Create(ctx context.Context, name, kind string) (*Owner, error)

	// Update changes an owner's name and, when kind is non-empty, its
	// kind. Re-kinding the reserved owner is allowed; deleting it is not.
	// Returns ErrOwnerNotFound, ErrNameRequired, ErrNameTooLong,
	// ErrNameTaken, or ErrKindInvalid.
	Update(ctx context.Context, id int64, name, kind string) (*Owner, error)

	// Delete removes an owner, first detaching any devices assigned to it.
	// The reserved home owner is protected: ErrOwnerProtected.
	// Returns ErrOwnerNotFound if the owner does not exist.
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List retrieves all owners, home first, then people alphabetically.
func (r *SQLiteRepository) List(ctx context.Context) ([]Owner, error) {
	query := `
		SELECT o.id, o.name, o.kind, COUNT(d.mac)
		FROM device_owners o
		LEFT JOIN devices d ON d.owner_id = o.id
		GROUP BY o.id
		ORDER BY CASE WHEN o.kind = 'home' THEN 0 ELSE 1 END, o.name COLLATE NOCASE`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.Kind, &o.DeviceCount); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owners: %w", err)
	}

	return owners, nil
}

// Get retrieves an owner by id.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Owner, error) {
	query := `
		SELECT o.id, o.name, o.kind, COUNT(d.mac)
		FROM device_owners o
		LEFT JOIN devices d ON d.owner_id = o.id
		WHERE o.id = ?
		GROUP BY o.id`

	var o Owner
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Name, &o.Kind, &o.DeviceCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("querying owner: %w", err)
	}
	return &o, nil
}

// Create adds an owner. An empty kind defaults to person.
func (r *SQLiteRepository) Create(ctx context.Context, name, kind string) (*Owner, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = KindPerson
	}
	if err := validateKind(kind); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO device_owners (name, kind) VALUES (?, ?)`, name, kind)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("creating owner: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new owner id: %w", err)
	}

	return &Owner{ID: id, Name: name, Kind: kind}, nil
}

// Update changes an owner's name, and its kind when one is given. The
// reserved owner may be re-kinded, only deletion is forbidden.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, name, kind string) (*Owner, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	var result sql.Result
	if kind != "" {
		if err := validateKind(kind); err != nil {
			return nil, err
		}
		result, err = r.db.ExecContext(ctx,
			`UPDATE device_owners SET name = ?, kind = ? WHERE id = ?`, name, kind, id)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE device_owners SET name = ? WHERE id = ?`, name, id)
	}
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("updating owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrOwnerNotFound
	}

	return r.Get(ctx, id)
}

// Delete removes an owner and detaches its devices in one transaction.
//
// The foreign key's ON DELETE SET NULL would detach devices by itself, but
// the explicit UPDATE keeps the behaviour correct even against a database
// file whose devices table predates the constraint.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	if id == ReservedID {
		return ErrOwnerProtected
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting delete transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		`UPDATE devices SET owner_id = NULL WHERE owner_id = ?`, id); err != nil {
		return fmt.Errorf("detaching devices: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM device_owners WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOwnerNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// validateName trims and checks an owner name.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len(name) > maxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// validateKind checks an owner kind.
func validateKind(kind string) error {
	if kind != KindPerson && kind != KindHome {
		return ErrKindInvalid
	}
	return nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
