package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/tabgrid/internal/groups"
	"github.com/lotas/tabgrid/internal/types"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var _ groups.Store = (*GroupKeys)(nil)

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "tabgrid.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not found: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != len(migrations) {
		t.Errorf("applied migrations = %d, want %d", n, len(migrations))
	}
}

func TestOpenDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	NewGroupKeys(db, "default").SetTitle(1, "Trip")
	db.Close()

	db, err = OpenDB(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()
	if title, ok := NewGroupKeys(db, "default").Title(1); !ok || title != "Trip" {
		t.Errorf("title after reopen = %q,%v", title, ok)
	}
}

func TestGroupKeys_TitleAndColor(t *testing.T) {
	db := testDB(t)
	g := NewGroupKeys(db, "default")

	if _, ok := g.Title(1); ok {
		t.Fatal("empty store returned a title")
	}

	g.SetTitle(1, "Trip")
	g.SetTitle(1, "Holiday")
	if title, ok := g.Title(1); !ok || title != "Holiday" {
		t.Errorf("title = %q,%v, want Holiday", title, ok)
	}

	g.SetColor(1, 0)
	if color, ok := g.Color(1); !ok || color != 0 {
		t.Errorf("color = %d,%v, want 0", color, ok)
	}

	g.RemoveTitle(1)
	if _, ok := g.Title(1); ok {
		t.Error("title kept after remove")
	}
	if _, ok := g.Color(1); !ok {
		t.Error("removing the title removed the color")
	}
	g.RemoveColor(1)
	if _, ok := g.Color(1); ok {
		t.Error("color kept after remove")
	}
}

func TestGroupKeys_ProfilesAreIsolated(t *testing.T) {
	db := testDB(t)
	a := NewGroupKeys(db, "a")
	b := NewGroupKeys(db, "b")

	a.SetTitle(1, "A")
	if _, ok := b.Title(1); ok {
		t.Error("profile b sees profile a's title")
	}
	if err := b.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.Title(1); !ok {
		t.Error("clearing b removed a's entry")
	}
}

func TestGroupKeys_Use(t *testing.T) {
	g := NewGroupKeys(testDB(t), "a")
	g.SetTitle(1, "A")
	g.Use("b")
	if _, ok := g.Title(1); ok {
		t.Error("switched store still sees profile a")
	}
	g.Use("a")
	if title, _ := g.Title(1); title != "A" {
		t.Errorf("title = %q after switching back", title)
	}
}

func TestGroupKeys_List(t *testing.T) {
	db := testDB(t)
	g := NewGroupKeys(db, "default")
	g.SetTitle(3, "Work")
	g.SetColor(3, 2)
	g.SetColor(1, 5)
	g.SetTitle(7, "Reading")

	keys, err := g.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []GroupKey{
		{RootID: 1, Title: "", Color: 5},
		{RootID: 3, Title: "Work", Color: 2},
		{RootID: 7, Title: "Reading", Color: types.NoColor},
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %+v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %+v, want %+v", i, keys[i], want[i])
		}
	}

	if err := g.Clear(); err != nil {
		t.Fatal(err)
	}
	if keys, _ := g.List(); len(keys) != 0 {
		t.Errorf("keys after clear = %+v", keys)
	}
}

func TestGroupKeys_WithResolver(t *testing.T) {
	db := testDB(t)
	store := NewGroupKeys(db, "default")
	store.SetTitle(1, "Trip")
	store.SetColor(1, 4)
	r := groups.NewResolver(store, groups.Options{StableIDs: true})

	r.StageMerge(1, 2)
	r.CommitMerge(1, 2)
	if title, _ := store.Title(2); title != "Trip" {
		t.Errorf("merged title = %q", title)
	}
	r.RollbackMerge(1, 2)
	if title, _ := store.Title(1); title != "Trip" {
		t.Errorf("rolled back title = %q", title)
	}
	if _, ok := store.Color(2); ok {
		t.Error("rolled back color kept on destination")
	}
}

func TestGroupKeys_ClosedDBDegradesToAbsent(t *testing.T) {
	db := testDB(t)
	g := NewGroupKeys(db, "default")
	g.SetTitle(1, "Trip")
	db.Close()

	if _, ok := g.Title(1); ok {
		t.Error("closed database returned a title")
	}
	g.SetColor(1, 1)
}
