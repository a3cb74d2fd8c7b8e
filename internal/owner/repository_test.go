package owner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/home-presence-core/internal/infrastructure/database"
)

// newTestRepo opens a migrated database in a temp directory.
func newTestRepo(t *testing.T) (*SQLiteRepository, *database.DB) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}

	return NewSQLiteRepository(db.DB), db
}

func TestList_HomeFirstThenAlphabetical(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"zoe", "alice", "Bob"} {
		if _, err := repo.Create(ctx, name, ""); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	owners, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"Home", "alice", "Bob", "zoe"}
	if len(owners) != len(want) {
		t.Fatalf("List() returned %d owners, want %d", len(owners), len(want))
	}
	for i, name := range want {
		if owners[i].Name != name {
			t.Errorf("owners[%d].Name = %q, want %q", i, owners[i].Name, name)
		}
	}
	if owners[0].ID != ReservedID || owners[0].Kind != KindHome {
		t.Errorf("first owner = %+v, want reserved home owner", owners[0])
	}
}

func TestList_DeviceCounts(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	alice, err := repo.Create(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, mac := range []string{"aa:aa:aa:aa:aa:01", "aa:aa:aa:aa:aa:02"} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO devices (mac, owner_id) VALUES (?, ?)`, mac, alice.ID); err != nil {
			t.Fatalf("inserting device: %v", err)
		}
	}

	got, err := repo.Get(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.DeviceCount != 2 {
		t.Errorf("DeviceCount = %d, want 2", got.DeviceCount)
	}
}

func TestCreate_Validation(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		kind    string
		wantErr error
	}{
		{"blank", "   ", "", ErrNameRequired},
		{"empty", "", "", ErrNameRequired},
		{"too long", strings.Repeat("x", maxNameLength+1), "", ErrNameTooLong},
		{"bad kind", "carol", "robot", ErrKindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := repo.Create(ctx, tt.input, tt.kind); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create(%q, %q) error = %v, want %v", tt.input, tt.kind, err, tt.wantErr)
			}
		})
	}
}

func TestCreate_ExplicitKind(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.Create(context.Background(), "Holiday house", KindHome)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Kind != KindHome {
		t.Errorf("Kind = %q, want home", got.Kind)
	}
}

func TestCreate_TrimsName(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.Create(context.Background(), "  alice  ", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Name != "alice" {
		t.Errorf("Name = %q, want alice", got.Name)
	}
	if got.Kind != KindPerson {
		t.Errorf("Kind = %q, want person", got.Kind)
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "alice", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := repo.Create(ctx, "alice", ""); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate Create() error = %v, want ErrNameTaken", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	alice, err := repo.Create(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Update(ctx, alice.ID, "alicia", "")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Name != "alicia" {
		t.Errorf("Name = %q, want alicia", got.Name)
	}
	if got.Kind != KindPerson {
		t.Errorf("Kind = %q changed by name-only update, want person", got.Kind)
	}

	if _, err := repo.Update(ctx, 9999, "ghost", ""); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrOwnerNotFound", err)
	}
	if _, err := repo.Update(ctx, alice.ID, "alicia", "robot"); !errors.Is(err, ErrKindInvalid) {
		t.Errorf("Update(bad kind) error = %v, want ErrKindInvalid", err)
	}
}

func TestUpdate_DuplicateName(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, "alice", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	bob, err := repo.Create(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := repo.Update(ctx, bob.ID, "alice", ""); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Update() error = %v, want ErrNameTaken", err)
	}
}

func TestUpdate_ReservedOwnerRekind(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// The reserved owner can be renamed and re-kinded; only deletion is
	// forbidden.
	got, err := repo.Update(ctx, ReservedID, "Everyone", KindPerson)
	if err != nil {
		t.Fatalf("Update(reserved) error = %v", err)
	}
	if got.Name != "Everyone" || got.Kind != KindPerson {
		t.Errorf("reserved owner = %+v, want renamed person", got)
	}
}

func TestDelete_DetachesDevices(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	alice, err := repo.Create(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO devices (mac, owner_id) VALUES ('aa:bb:cc:dd:ee:ff', ?)`, alice.ID); err != nil {
		t.Fatalf("inserting device: %v", err)
	}

	if err := repo.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Device survives, unassigned
	var ownerID *int64
	if err := db.QueryRowContext(ctx,
		`SELECT owner_id FROM devices WHERE mac = 'aa:bb:cc:dd:ee:ff'`).Scan(&ownerID); err != nil {
		t.Fatalf("querying device: %v", err)
	}
	if ownerID != nil {
		t.Errorf("owner_id = %d after delete, want NULL", *ownerID)
	}

	if _, err := repo.Get(ctx, alice.ID); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrOwnerNotFound", err)
	}
}

func TestDelete_ReservedOwnerProtected(t *testing.T) {
	repo, _ := newTestRepo(t)

	if err := repo.Delete(context.Background(), ReservedID); !errors.Is(err, ErrOwnerProtected) {
		t.Errorf("Delete(reserved) error = %v, want ErrOwnerProtected", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	if err := repo.Delete(context.Background(), 9999); !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrOwnerNotFound", err)
	}
}
