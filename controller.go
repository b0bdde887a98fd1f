package itemsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpalmerr/itemsync/events"
	"github.com/jpalmerr/itemsync/internal/cache"
	"github.com/jpalmerr/itemsync/store"
)

// Controller keeps an ordered, observable cache of records synchronized with
// the selected backing store, and applies create/update/delete requests
// published by independent producers.
//
// A Controller is created with [New] (or obtained through [Shared]) and
// processes published events once [Controller.Start] has been called:
//
//	ctrl, err := itemsync.New(ctx, itemsync.WithDatabasePath("items.db"))
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	ctrl.Start(ctx)
//	ctrl.Publish(events.Create{Sender: "importer", Record: r})
//
// Cache-mutating operations (Add, Delete, Update, Load, SetDataSource,
// WipeDataList) are serialized against each other. A load requested while
// another one is in flight is skipped, not queued.
type Controller struct {
	logger        *slog.Logger
	stores        [2]store.Store
	autoRefresh   time.Duration
	loadCallbacks []func(LoadResult)

	cache *cache.Cache
	bus   *events.Bus

	// mu serializes cache-mutating operations.
	mu      sync.Mutex
	pending []LoadResult

	srcMu   sync.RWMutex
	source  DataSource
	current store.Store

	busy         atomic.Bool
	needsRefresh atomic.Bool

	lastMu   sync.RWMutex
	lastLoad LoadResult

	loadsCompleted atomic.Uint64
	loadsFailed    atomic.Uint64
	loadsSkipped   atomic.Uint64

	lifeMu  sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Stats summarizes controller activity.
type Stats struct {
	Source         DataSource   `json:"source"`
	CacheLen       int          `json:"cache_len"`
	LoadsCompleted uint64       `json:"loads_completed"`
	LoadsFailed    uint64       `json:"loads_failed"`
	LoadsSkipped   uint64       `json:"loads_skipped"`
	Events         events.Stats `json:"events"`
}

// New creates a [Controller] and initializes it (see [Controller.Initialize]).
//
// Defaults:
//   - Transient store: in-memory, seeded with demo records
//   - Persistent store: SQLite at [DefaultDatabasePath], opened on first use
//   - Initial source: [SourceTransient]
//   - Event queue size: [events.DefaultQueueSize]
//   - Auto refresh: disabled
//
// A failing initial load does not make New fail; the cache is left empty
// and the failure is available from [Controller.LastLoad].
func New(ctx context.Context, opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.transient == nil {
		cfg.transient = store.NewMemoryStore(store.DemoRecords()...)
	}
	if cfg.persistent == nil {
		cfg.persistent = store.NewSQLStore(cfg.databasePath)
	}

	c := &Controller{
		logger:        logger,
		stores:        [2]store.Store{cfg.transient, cfg.persistent},
		autoRefresh:   cfg.autoRefresh,
		loadCallbacks: cfg.loadCallbacks,
		cache:         cache.New(),
	}
	c.bus = events.NewBus(c.handleEvent, cfg.queueSize, logger)

	c.Initialize(ctx, cfg.initialSource)
	return c, nil
}

// Initialize empties the cache and selects src, performing a full load.
//
// Load failures are swallowed and leave the cache empty.
func (c *Controller) Initialize(ctx context.Context, src DataSource) {
	c.cache.Clear()
	c.SetDataSource(ctx, int(src))
}

// Start begins delivering published events, and starts the auto-refresh
// loop when one is configured.
//
// Start is non-blocking and idempotent. Processing stops when ctx is
// cancelled or [Controller.Stop] is called.
func (c *Controller) Start(ctx context.Context) {
	c.lifeMu.Lock()
	if c.started || c.stopped {
		c.lifeMu.Unlock()
		return
	}
	c.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.lifeMu.Unlock()

	c.bus.Start(ctx)

	if c.autoRefresh > 0 {
		c.wg.Add(1)
		go c.refreshLoop(ctx)
	}

	c.logger.Info("controller started",
		"source", c.DataSource().String(),
		"auto_refresh", c.autoRefresh.String(),
	)
}

// Stop halts event delivery and the auto-refresh loop, waiting for the
// event in progress to finish. Stop is idempotent.
func (c *Controller) Stop() {
	c.lifeMu.Lock()
	wasStopped := c.stopped
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
	c.lifeMu.Unlock()

	c.bus.Stop()
	c.wg.Wait()

	if !wasStopped {
		c.logger.Info("controller stopped")
	}
}

// Close stops the controller and closes every store that implements
// [io.Closer].
func (c *Controller) Close() error {
	c.Stop()

	var errs []error
	for _, st := range c.stores {
		if closer, ok := st.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Publish queues ev for the controller. Returns false if it was dropped
// because the queue is full or the controller is stopped.
func (c *Controller) Publish(ev events.Event) bool {
	return c.bus.Publish(ev)
}

// handleEvent applies one event. It runs on the bus worker.
func (c *Controller) handleEvent(ctx context.Context, ev events.Event) {
	var ok bool
	switch e := ev.(type) {
	case events.SetDataSource:
		ok = c.SetDataSource(ctx, e.Source)
	case events.Create:
		ok = c.Add(ctx, e.Record)
	case events.Delete:
		ok = c.Delete(ctx, e.Record)
	case events.Update:
		ok = c.Update(ctx, e.Record)
	case events.WipeDataList:
		c.WipeDataList(ctx)
		ok = true
	default:
		c.logger.Warn("unknown event ignored", "type", ev.Topic().String())
		return
	}

	c.logger.Debug("event handled",
		"topic", ev.Topic().String(),
		"sender", ev.From(),
		"ok", ok,
	)
}

// refreshLoop reloads the cache whenever the needs-refresh flag is set.
func (c *Controller) refreshLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.autoRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.NeedsRefresh() {
				c.ForceDataRefresh(ctx)
			}
		}
	}
}

// Records returns a snapshot of the cache, in cache order.
func (c *Controller) Records() []Record {
	return c.cache.Snapshot()
}

// Subscribe returns a channel of cache changes. Slow subscribers miss
// changes. Caller must call [Controller.Unsubscribe] when done.
func (c *Controller) Subscribe() <-chan cache.Change {
	return c.cache.Subscribe()
}

// Unsubscribe removes a subscription created by [Controller.Subscribe].
func (c *Controller) Unsubscribe(ch <-chan cache.Change) {
	c.cache.Unsubscribe(ch)
}

// DataSource returns the currently selected data source.
func (c *Controller) DataSource() DataSource {
	c.srcMu.RLock()
	defer c.srcMu.RUnlock()
	return c.source
}

// Stats returns a snapshot of controller counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Source:         c.DataSource(),
		CacheLen:       c.cache.Len(),
		LoadsCompleted: c.loadsCompleted.Load(),
		LoadsFailed:    c.loadsFailed.Load(),
		LoadsSkipped:   c.loadsSkipped.Load(),
		Events:         c.bus.Stats(),
	}
}

// currentStore returns the selected source and its store.
func (c *Controller) currentStore() (DataSource, store.Store) {
	c.srcMu.RLock()
	defer c.srcMu.RUnlock()
	return c.source, c.current
}

// withLock runs fn holding mu, then reports the loads fn performed to the
// load callbacks once mu is released.
func (c *Controller) withLock(fn func()) {
	var pending []LoadResult
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		fn()
		pending, c.pending = c.pending, nil
	}()

	for _, res := range pending {
		c.notifyLoad(res)
	}
}
