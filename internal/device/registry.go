package device

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nerrad567/home-presence-core/internal/mac"
)

// Registry is the validating front door for device writes. It normalises
// MAC addresses, sanitises field values, and delegates persistence to the
// repository. HTTP handlers and the presence poller both go through here
// so that every write obeys the same rules.
type Registry struct {
	repo Repository
}

// NewRegistry creates a device registry backed by the given repository.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// List returns all known devices ordered by MAC.
func (g *Registry) List(ctx context.Context) ([]Device, error) {
	return g.repo.List(ctx)
}

// Get returns one device by raw MAC (any accepted format).
// Returns mac.ErrInvalidMAC or ErrDeviceNotFound.
func (g *Registry) Get(ctx context.Context, rawMAC string) (*Device, error) {
	canonical, err := mac.Normalize(rawMAC)
	if err != nil {
		return nil, err
	}
	return g.repo.Get(ctx, canonical)
}

// Upsert records a device, creating the row if needed and applying only
// the fields the update carries.
//
// Sanitisation before persistence:
//   - MAC is normalised to canonical form
//   - Label/band/ip values are trimmed; empty strings become NULL
//   - Labels over the maximum length are rejected with ErrLabelTooLong
//   - Presence type is coerced to 'primary'/'secondary'; anything else
//     (including legacy 1/2 encodings) is mapped or cleared to NULL
func (g *Registry) Upsert(ctx context.Context, rawMAC string, upd Update) (*Device, error) {
	canonical, err := mac.Normalize(rawMAC)
	if err != nil {
		return nil, err
	}

	if err := sanitizeUpdate(&upd); err != nil {
		return nil, err
	}

	device, err := g.repo.Upsert(ctx, canonical, upd)
	if err != nil {
		return nil, fmt.Errorf("upserting %s: %w", canonical, err)
	}
	return device, nil
}

// SetOwner assigns (or clears, with nil) a device's owner, registering
// the device first if it has never been seen.
func (g *Registry) SetOwner(ctx context.Context, rawMAC string, ownerID *int64) (*Device, error) {
	canonical, err := mac.Normalize(rawMAC)
	if err != nil {
		return nil, err
	}
	return g.repo.SetOwner(ctx, canonical, ownerID)
}

// Delete removes a device.
func (g *Registry) Delete(ctx context.Context, rawMAC string) error {
	canonical, err := mac.Normalize(rawMAC)
	if err != nil {
		return err
	}
	return g.repo.Delete(ctx, canonical)
}

// sanitizeUpdate normalises field values in place.
func sanitizeUpdate(upd *Update) error {
	trimField(upd.Label)
	trimField(upd.Band)
	trimField(upd.IP)

	if upd.Label != nil && upd.Label.Valid && len(upd.Label.String) > maxLabelLength {
		return ErrLabelTooLong
	}

	if pt := upd.PresenceType; pt != nil && pt.Valid {
		switch strings.ToLower(strings.TrimSpace(pt.String)) {
		case PresencePrimary, "1":
			pt.String, pt.Valid = PresencePrimary, true
		case PresenceSecondary, "2":
			pt.String, pt.Valid = PresenceSecondary, true
		default:
			// Unknown values clear rather than error; the column's CHECK
			// constraint must never be hit by user input.
			pt.String, pt.Valid = "", false
		}
	}

	return nil
}

// trimField trims a set string field, converting empty results to NULL.
func trimField(f *sql.NullString) {
	if f == nil || !f.Valid {
		return
	}
	f.String = strings.TrimSpace(f.String)
	if f.String == "" {
		f.Valid = false
	}
}
