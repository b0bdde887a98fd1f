package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// testDBPath returns a temporary path for test databases.
func testDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "items.db")
}

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLStore(context.Background(), testDBPath(t))
	if err != nil {
		t.Fatalf("OpenSQLStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSQLStore_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "items.db")
	s, err := OpenSQLStore(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLStore() error = %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSQLStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ok, err := s.Create(ctx, Record{ID: "1", Name: "Pick", Description: "tool", Value: 2})
	if err != nil || !ok {
		t.Fatalf("Create() = %v, %v, want true, nil", ok, err)
	}

	ok, err = s.Create(ctx, Record{ID: "1", Name: "dup"})
	if err != nil {
		t.Fatalf("Create() duplicate error = %v", err)
	}
	if ok {
		t.Error("Create() duplicate = true, want false")
	}

	got, err := s.Read(ctx, "1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := Record{ID: "1", Name: "Pick", Description: "tool", Value: 2}
	if got == nil || *got != want {
		t.Fatalf("Read() = %v, want %+v", got, want)
	}

	ok, err = s.Update(ctx, Record{ID: "1", Name: "Drill", Description: "tool", Value: 5})
	if err != nil || !ok {
		t.Fatalf("Update() = %v, %v, want true, nil", ok, err)
	}
	got, _ = s.Read(ctx, "1")
	if got.Name != "Drill" || got.Value != 5 {
		t.Errorf("after Update() Read() = %+v", *got)
	}

	ok, err = s.Delete(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("Delete() = %v, %v, want true, nil", ok, err)
	}
	got, err = s.Read(ctx, "1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Errorf("Read() after Delete() = %+v, want nil", *got)
	}
}

func TestSQLStore_MissingRecords(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if ok, err := s.Update(ctx, Record{ID: "nope", Name: "x"}); err != nil || ok {
		t.Errorf("Update() missing = %v, %v, want false, nil", ok, err)
	}
	if ok, err := s.Delete(ctx, "nope"); err != nil || ok {
		t.Errorf("Delete() missing = %v, %v, want false, nil", ok, err)
	}
}

func TestSQLStore_IndexAndWipe(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, r := range []Record{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "C"}} {
		if _, err := s.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	records, err := s.Index(ctx, true)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Index() = %d records, want 3", len(records))
	}

	if err := s.Wipe(ctx); err != nil {
		t.Fatalf("Wipe() error = %v", err)
	}
	records, _ = s.Index(ctx, true)
	if len(records) != 0 {
		t.Errorf("Index() after Wipe() = %d records, want 0", len(records))
	}
}

func TestSQLStore_IndexSnapshot(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t)

	s, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLStore() error = %v", err)
	}
	defer s.Close()
	_, _ = s.Create(ctx, Record{ID: "1", Name: "A"})

	if records, _ := s.Index(ctx, true); len(records) != 1 {
		t.Fatalf("Index(true) = %d records, want 1", len(records))
	}

	// write through a second handle, bypassing s's snapshot invalidation
	other, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLStore() second handle error = %v", err)
	}
	defer other.Close()
	_, _ = other.Create(ctx, Record{ID: "2", Name: "B"})

	if records, _ := s.Index(ctx, false); len(records) != 1 {
		t.Errorf("Index(false) = %d records, want cached 1", len(records))
	}
	if records, _ := s.Index(ctx, true); len(records) != 2 {
		t.Errorf("Index(true) = %d records, want 2", len(records))
	}
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t)

	s, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLStore() error = %v", err)
	}
	_, _ = s.Create(ctx, Record{ID: "1", Name: "kept"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := NewSQLStore(path)
	defer reopened.Close()
	got, err := reopened.Read(ctx, "1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got == nil || got.Name != "kept" {
		t.Errorf("Read() after reopen = %v, want Name=kept", got)
	}
}

func TestSQLStore_Closed(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	_, err := s.Read(context.Background(), "1")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close() error = %v, want ErrClosed", err)
	}
}
