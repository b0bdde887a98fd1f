// Package cache provides the ordered, observable record list mirrored by the
// itemsync controller.
//
// The cache keeps records in insertion order; sorting is the loader's job.
// Observers subscribe to a stream of [Change] values. Sends are non-blocking:
// a subscriber whose buffer is full misses changes rather than blocking
// the writer.
package cache

import (
	"sync"

	"github.com/jpalmerr/itemsync/store"
)

// subscriberBuffer is the channel buffer given to each subscriber.
const subscriberBuffer = 100

// Kind identifies what happened to the cache.
type Kind string

const (
	// Added means Record was appended, or replaced an entry with the same ID.
	Added Kind = "added"

	// Removed means Record was removed.
	Removed Kind = "removed"

	// Cleared means the cache was emptied.
	Cleared Kind = "cleared"

	// Reset means the cache contents were replaced wholesale.
	Reset Kind = "reset"
)

// Change describes a single cache mutation.
type Change struct {
	Kind   Kind         `json:"kind"`
	Record store.Record `json:"record"`

	// Len is the cache length after the change.
	Len int `json:"len"`
}

// Cache is an ordered list of records with unique IDs.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records []store.Record

	subMu       sync.RWMutex
	subscribers map[chan Change]struct{}
}

// New creates an empty [Cache].
func New() *Cache {
	return &Cache{
		subscribers: make(map[chan Change]struct{}),
	}
}

// Snapshot returns a copy of the cached records in cache order.
func (c *Cache) Snapshot() []store.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]store.Record(nil), c.records...)
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Contains reports whether a record with the given ID is cached.
func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(id) >= 0
}

// Append adds r at the end of the cache without re-sorting.
//
// If a record with the same ID is already cached it is replaced in place,
// so the cache never holds two records with one ID.
func (c *Cache) Append(r store.Record) {
	c.mu.Lock()
	if i := c.indexOf(r.ID); i >= 0 {
		c.records[i] = r
	} else {
		c.records = append(c.records, r)
	}
	n := len(c.records)
	c.mu.Unlock()

	c.notify(Change{Kind: Added, Record: r, Len: n})
}

// Remove deletes the record with the given ID. Returns false if it was not cached.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	removed := c.records[i]
	c.records = append(c.records[:i], c.records[i+1:]...)
	n := len(c.records)
	c.mu.Unlock()

	c.notify(Change{Kind: Removed, Record: removed, Len: n})
	return true
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.records = nil
	c.mu.Unlock()

	c.notify(Change{Kind: Cleared})
}

// Reset replaces the cache contents with records, in the given order.
// Later duplicates of an ID are dropped.
func (c *Cache) Reset(records []store.Record) {
	seen := make(map[string]struct{}, len(records))
	next := make([]store.Record, 0, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		next = append(next, r)
	}

	c.mu.Lock()
	c.records = next
	c.mu.Unlock()

	c.notify(Change{Kind: Reset, Len: len(next)})
}

// indexOf returns the position of id, or -1. Callers must hold mu.
func (c *Cache) indexOf(id string) int {
	for i := range c.records {
		if c.records[i].ID == id {
			return i
		}
	}
	return -1
}

// Subscribe returns a channel that receives every subsequent [Change].
//
// Caller must call [Cache.Unsubscribe] when done to prevent resource leaks.
func (c *Cache) Subscribe() <-chan Change {
	ch := make(chan Change, subscriberBuffer)

	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (c *Cache) Unsubscribe(ch <-chan Change) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for subCh := range c.subscribers {
		if subCh == ch {
			delete(c.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (c *Cache) notify(change Change) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for ch := range c.subscribers {
		select {
		case ch <- change:
		default:
			// subscriber is slow, drop the change
		}
	}
}
