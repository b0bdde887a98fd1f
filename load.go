package itemsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/itemsync/store"
)

// LoadOutcome classifies a [LoadResult].
type LoadOutcome string

const (
	// LoadCompleted means the cache now mirrors the store.
	LoadCompleted LoadOutcome = "completed"

	// LoadFailed means the store fetch failed. The cache was cleared and
	// left empty.
	LoadFailed LoadOutcome = "failed"

	// LoadSkipped means another load was in flight; nothing was touched.
	LoadSkipped LoadOutcome = "skipped"
)

// LoadResult reports what a full load did. Failures never reach callers
// as errors; they are recorded here instead.
type LoadResult struct {
	Outcome LoadOutcome `json:"outcome"`
	Source  DataSource  `json:"source"`

	// Count is the number of records cached by a completed load.
	Count int `json:"count"`

	// Err is the store failure behind a failed load.
	Err error `json:"-"`

	// CorrelationID identifies a failed load in the logs.
	CorrelationID string `json:"correlation_id,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the load failed.
func (r LoadResult) Failed() bool {
	return r.Outcome == LoadFailed
}

// Load performs a full reload of the cache from the selected store.
//
// If a load is already in flight Load returns immediately with
// [LoadSkipped]. Otherwise it clears the cache, fetches every record
// (bypassing any store snapshot), sorts them by Name then Description and
// repopulates the cache. A fetch failure is logged and reported as
// [LoadFailed], leaving the cache empty.
func (c *Controller) Load(ctx context.Context) LoadResult {
	if !c.busy.CompareAndSwap(false, true) {
		return c.skipped()
	}

	var res LoadResult
	c.withLock(func() {
		defer c.busy.Store(false)
		res = c.reload(ctx)
	})
	return res
}

// ForceDataRefresh runs the load command. Like [Controller.Load] it is a
// no-op while another load is in flight.
func (c *Controller) ForceDataRefresh(ctx context.Context) LoadResult {
	return c.Load(ctx)
}

// CanLoad reports whether the load command is enabled, i.e. no load is in
// flight.
func (c *Controller) CanLoad() bool {
	return !c.busy.Load()
}

// LastLoad returns the most recent completed or failed load.
func (c *Controller) LastLoad() LoadResult {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	return c.lastLoad
}

// loadLocked is Load for callers already holding mu.
func (c *Controller) loadLocked(ctx context.Context) LoadResult {
	if !c.busy.CompareAndSwap(false, true) {
		return c.skipped()
	}
	defer c.busy.Store(false)
	return c.reload(ctx)
}

// reload does the work of a load. Callers hold mu and the busy flag.
func (c *Controller) reload(ctx context.Context) LoadResult {
	src, st := c.currentStore()
	res := LoadResult{Source: src, StartedAt: time.Now()}

	c.cache.Clear()

	records, err := st.Index(ctx, true)
	res.Duration = time.Since(res.StartedAt)

	if err != nil {
		res.Outcome = LoadFailed
		res.Err = fmt.Errorf("index %s store: %w", src, err)
		res.CorrelationID = uuid.NewString()
		c.loadsFailed.Add(1)
		c.logger.Warn("load failed",
			"correlation_id", res.CorrelationID,
			"source", src.String(),
			"error", err.Error(),
		)
	} else {
		store.SortRecords(records)
		c.cache.Reset(records)
		res.Outcome = LoadCompleted
		res.Count = len(records)
		c.loadsCompleted.Add(1)
		c.logger.Debug("load completed",
			"source", src.String(),
			"count", res.Count,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}

	c.lastMu.Lock()
	c.lastLoad = res
	c.lastMu.Unlock()

	c.pending = append(c.pending, res)
	return res
}

func (c *Controller) skipped() LoadResult {
	c.loadsSkipped.Add(1)
	src, _ := c.currentStore()
	c.logger.Debug("load skipped, another load in flight", "source", src.String())
	return LoadResult{Outcome: LoadSkipped, Source: src, StartedAt: time.Now()}
}

// notifyLoad calls the load callbacks with panic recovery.
func (c *Controller) notifyLoad(res LoadResult) {
	for _, cb := range c.loadCallbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("load callback panicked",
						"panic", r,
						"outcome", string(res.Outcome),
					)
				}
			}()
			cb(res)
		}()
	}
}
