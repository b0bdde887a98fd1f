package store

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store is closed")

// Store defines the contract of a backing store.
//
// Implementations must be safe for concurrent access. Missing records are
// not errors; errors signal I/O failures only.
type Store interface {
	// Index returns every stored record, in no particular order.
	// When forceReload is true the store must bypass any internal snapshot
	// and read from its backing medium.
	Index(ctx context.Context, forceReload bool) ([]Record, error)

	// Read returns the record with the given ID, or nil if it does not exist.
	Read(ctx context.Context, id string) (*Record, error)

	// Create stores a new record. Returns false if the ID is already taken.
	Create(ctx context.Context, r Record) (bool, error)

	// Update replaces the stored record with the same ID.
	// Returns false if no such record exists.
	Update(ctx context.Context, r Record) (bool, error)

	// Delete removes the record with the given ID.
	// Returns false if no such record exists.
	Delete(ctx context.Context, id string) (bool, error)

	// Wipe removes every stored record.
	Wipe(ctx context.Context) error
}
