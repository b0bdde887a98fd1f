package itemsync

import "github.com/jpalmerr/itemsync/store"

// Record is the unit of data synchronized by the [Controller].
type Record = store.Record

// DataSource selects one of the two backing stores.
type DataSource int

const (
	// SourceTransient is the in-memory store. It is the default.
	SourceTransient DataSource = 0

	// SourcePersistent is the SQLite-backed store.
	SourcePersistent DataSource = 1
)

// ParseDataSource maps an integer source ID to a [DataSource].
// Any value other than 1 selects [SourceTransient].
func ParseDataSource(id int) DataSource {
	if id == int(SourcePersistent) {
		return SourcePersistent
	}
	return SourceTransient
}

// String returns "transient" or "persistent".
func (d DataSource) String() string {
	if d == SourcePersistent {
		return "persistent"
	}
	return "transient"
}
