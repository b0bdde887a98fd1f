package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	value INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_order ON records(name, description);
`

// SQLStore is a persistent implementation of [Store] backed by an embedded
// SQLite database (WAL mode, no cgo).
//
// A store created with [NewSQLStore] opens its database on first use; a
// failed open is reported by that call and retried by the next one. Use
// [OpenSQLStore] to open eagerly and surface errors up front.
//
// Index(ctx, false) may answer from the snapshot taken by the previous
// Index call. Any write invalidates the snapshot.
type SQLStore struct {
	path string

	mu     sync.Mutex
	db     *sql.DB
	closed bool

	snapMu   sync.Mutex
	snapshot []Record
	snapOK   bool
}

// NewSQLStore returns an [SQLStore] for the database at path without opening it.
func NewSQLStore(path string) *SQLStore {
	return &SQLStore{path: path}
}

// OpenSQLStore opens (creating if needed) the database at path and
// initializes its schema.
//
// The caller must call [SQLStore.Close] when done.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	s := NewSQLStore(path)
	if _, err := s.conn(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.path
}

// conn returns the open database handle, opening it on first use.
func (s *SQLStore) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.db != nil {
		return s.db, nil
	}

	db, err := openDatabase(ctx, s.path)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Index returns all stored records.
func (s *SQLStore) Index(ctx context.Context, forceReload bool) ([]Record, error) {
	if !forceReload {
		s.snapMu.Lock()
		if s.snapOK {
			records := append([]Record(nil), s.snapshot...)
			s.snapMu.Unlock()
			return records, nil
		}
		s.snapMu.Unlock()
	}

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name, description, value FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	s.snapMu.Lock()
	s.snapshot = append([]Record(nil), records...)
	s.snapOK = true
	s.snapMu.Unlock()

	return records, nil
}

// Read returns the record with the given ID, or nil.
func (s *SQLStore) Read(ctx context.Context, id string) (*Record, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	var r Record
	err = db.QueryRowContext(ctx,
		`SELECT id, name, description, value FROM records WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	return &r, nil
}

// Create inserts r. Returns false if a record with the same ID exists.
func (s *SQLStore) Create(ctx context.Context, r Record) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.exec(ctx, fmt.Sprintf("create record %s", r.ID), `
	INSERT INTO records (id, name, description, value, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
	`, r.ID, r.Name, r.Description, r.Value, now, now)
}

// Update replaces the record with r.ID. Returns false if it does not exist.
func (s *SQLStore) Update(ctx context.Context, r Record) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.exec(ctx, fmt.Sprintf("update record %s", r.ID), `
	UPDATE records SET name = ?, description = ?, value = ?, updated_at = ?
	WHERE id = ?
	`, r.Name, r.Description, r.Value, now, r.ID)
}

// Delete removes the record with the given ID. Returns false if it does not exist.
func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	return s.exec(ctx, fmt.Sprintf("delete record %s", id),
		`DELETE FROM records WHERE id = ?`, id)
}

// Wipe removes all records.
func (s *SQLStore) Wipe(ctx context.Context) error {
	_, err := s.exec(ctx, "wipe records", `DELETE FROM records`)
	return err
}

// exec runs a write statement and reports whether it affected any row.
func (s *SQLStore) exec(ctx context.Context, what, query string, args ...any) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	s.invalidate()

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", what, err)
	}
	return n > 0, nil
}

func (s *SQLStore) invalidate() {
	s.snapMu.Lock()
	s.snapshot = nil
	s.snapOK = false
	s.snapMu.Unlock()
}

// Close checkpoints the WAL and closes the database. Safe to call more
// than once; later operations return [ErrClosed].
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.db == nil {
		return nil
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
