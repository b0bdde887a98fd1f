package itemsync

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/itemsync/events"
	"github.com/jpalmerr/itemsync/store"
)

// DefaultDatabasePath is where the persistent store lives unless
// [WithDatabasePath] or [WithPersistentStore] says otherwise.
const DefaultDatabasePath = "itemsync.db"

// ctrlConfig holds mutable state during Controller construction.
type ctrlConfig struct {
	transient     store.Store
	persistent    store.Store
	databasePath  string
	initialSource DataSource
	queueSize     int
	autoRefresh   time.Duration
	logger        *slog.Logger
	loadCallbacks []func(LoadResult)
}

// Option configures a [Controller] during construction.
//
// Options return an error if validation fails; [New] reports the first one.
type Option func(*ctrlConfig) error

// WithTransientStore sets the store used for [SourceTransient].
//
// Defaults to a [store.MemoryStore] seeded with [store.DemoRecords].
func WithTransientStore(s store.Store) Option {
	return func(cfg *ctrlConfig) error {
		if s == nil {
			return errors.New("transient store cannot be nil")
		}
		cfg.transient = s
		return nil
	}
}

// WithPersistentStore sets the store used for [SourcePersistent].
//
// Defaults to a lazily opened [store.SQLStore] at the database path.
func WithPersistentStore(s store.Store) Option {
	return func(cfg *ctrlConfig) error {
		if s == nil {
			return errors.New("persistent store cannot be nil")
		}
		cfg.persistent = s
		return nil
	}
}

// WithDatabasePath sets the SQLite file used by the default persistent store.
// Ignored when [WithPersistentStore] is given.
func WithDatabasePath(path string) Option {
	return func(cfg *ctrlConfig) error {
		if path == "" {
			return errors.New("database path cannot be empty")
		}
		cfg.databasePath = path
		return nil
	}
}

// WithInitialSource selects the data source loaded by [New].
func WithInitialSource(src DataSource) Option {
	return func(cfg *ctrlConfig) error {
		if src != SourceTransient && src != SourcePersistent {
			return errors.New("initial source must be 0 (transient) or 1 (persistent)")
		}
		cfg.initialSource = src
		return nil
	}
}

// WithQueueSize sets the capacity of the event queue.
// Publishes beyond it are dropped. Defaults to [events.DefaultQueueSize].
func WithQueueSize(n int) Option {
	return func(cfg *ctrlConfig) error {
		if n <= 0 {
			return errors.New("queue size must be positive")
		}
		cfg.queueSize = n
		return nil
	}
}

// WithAutoRefresh makes [Controller.Start] poll the needs-refresh flag every
// d and reload the cache when it is set. Zero disables it (the default).
//
// The poll consumes the one-shot flag, so other consumers of
// [Controller.NeedsRefresh] will rarely see it set.
func WithAutoRefresh(d time.Duration) Option {
	return func(cfg *ctrlConfig) error {
		if d < 0 {
			return errors.New("auto refresh interval cannot be negative")
		}
		cfg.autoRefresh = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *ctrlConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithLoadCallback registers a function called with the result of every
// load, including failed ones. Skipped loads are not reported.
//
// Callbacks run synchronously after the operation that triggered the load
// has released the controller, in registration order. Panics are recovered
// and logged. Nil callbacks are ignored.
func WithLoadCallback(cb func(LoadResult)) Option {
	return func(cfg *ctrlConfig) error {
		if cb == nil {
			return nil
		}
		cfg.loadCallbacks = append(cfg.loadCallbacks, cb)
		return nil
	}
}

func defaultConfig() *ctrlConfig {
	return &ctrlConfig{
		databasePath:  DefaultDatabasePath,
		initialSource: SourceTransient,
		queueSize:     events.DefaultQueueSize,
	}
}
