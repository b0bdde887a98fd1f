package store

import (
	"sort"

	"github.com/google/uuid"
)

// Record is the unit of data kept in a [Store] and mirrored by the
// controller's cache.
//
// Two records are the same record when their IDs are equal; the remaining
// fields are payload.
type Record struct {
	// ID uniquely identifies the record within a store.
	ID string `json:"id"`

	// Name is the primary sort key.
	Name string `json:"name"`

	// Description is the secondary sort key.
	Description string `json:"description"`

	// Value is an arbitrary numeric payload.
	Value int `json:"value"`
}

// NewID returns a fresh random record ID.
func NewID() string {
	return uuid.NewString()
}

// Merge returns r with every non-zero field of other copied over it.
//
// The receiver's ID always wins. Zero values in other (empty strings, a zero
// Value) are treated as absent and leave the corresponding field unchanged.
func (r Record) Merge(other Record) Record {
	if other.Name != "" {
		r.Name = other.Name
	}
	if other.Description != "" {
		r.Description = other.Description
	}
	if other.Value != 0 {
		r.Value = other.Value
	}
	return r
}

// Less reports whether a sorts before b: by Name, then by Description.
func Less(a, b Record) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Description < b.Description
}

// SortRecords sorts records in place by Name, then Description.
// Records with equal keys keep their relative order.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return Less(records[i], records[j])
	})
}

// DemoRecords returns the sample data the transient store is seeded with
// by default.
func DemoRecords() []Record {
	return []Record{
		{ID: NewID(), Name: "Pick", Description: "Breaks ore loose", Value: 2},
		{ID: NewID(), Name: "Lantern", Description: "Lights the shaft", Value: 1},
		{ID: NewID(), Name: "Cart", Description: "Hauls ore to the surface", Value: 5},
		{ID: NewID(), Name: "Drill", Description: "Bores blast holes", Value: 8},
		{ID: NewID(), Name: "Rope", Description: "Lowers the cage", Value: 1},
	}
}
