package store

import (
	"context"
	"sync"
)

// MemoryStore is a transient, in-memory implementation of [Store].
//
// Records are keyed by ID. Contents are lost when the process exits, which
// makes MemoryStore the default data source for demos and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates a [MemoryStore] pre-populated with seed.
//
// Seed records with an empty ID are given a fresh one. If seed contains
// duplicate IDs the last one wins.
func NewMemoryStore(seed ...Record) *MemoryStore {
	m := &MemoryStore{
		records: make(map[string]Record, len(seed)),
	}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = NewID()
		}
		m.records[r.ID] = r
	}
	return m
}

// Index returns a snapshot of all stored records.
//
// forceReload is ignored; memory is always current.
func (m *MemoryStore) Index(ctx context.Context, forceReload bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	return records, nil
}

// Read returns a copy of the record with the given ID, or nil.
func (m *MemoryStore) Read(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// Create stores r. Returns false if a record with the same ID exists.
func (m *MemoryStore) Create(ctx context.Context, r Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[r.ID]; exists {
		return false, nil
	}
	m.records[r.ID] = r
	return true, nil
}

// Update replaces the record with r.ID. Returns false if it does not exist.
func (m *MemoryStore) Update(ctx context.Context, r Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[r.ID]; !exists {
		return false, nil
	}
	m.records[r.ID] = r
	return true, nil
}

// Delete removes the record with the given ID. Returns false if it does not exist.
func (m *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

// Wipe removes all records.
func (m *MemoryStore) Wipe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.records = make(map[string]Record)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
