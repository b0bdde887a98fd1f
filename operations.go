package itemsync

import "context"

// SetDataSource selects the backing store: 0 for transient, 1 for
// persistent; any other value selects transient.
//
// It rebinds the store, performs a full load and sets the needs-refresh
// flag. The result reports that the switch was accepted; it is true even
// when the load fails (see [Controller.LastLoad]).
func (c *Controller) SetDataSource(ctx context.Context, id int) bool {
	src := ParseDataSource(id)

	c.withLock(func() {
		c.srcMu.Lock()
		c.source = src
		c.current = c.stores[src]
		c.srcMu.Unlock()

		c.logger.Info("data source selected", "source", src.String())

		c.loadLocked(ctx)
		c.SetNeedsRefresh(true)
	})
	return true
}

// Add appends r to the cache right away, unsorted, then persists it.
//
// Add always returns true: whether the store accepted r is only logged.
// No existence check is made; an r whose ID is already cached replaces the
// cached entry, and the next load shows what the store actually kept.
func (c *Controller) Add(ctx context.Context, r Record) bool {
	c.withLock(func() {
		src, st := c.currentStore()

		c.cache.Append(r)

		ok, err := st.Create(ctx, r)
		switch {
		case err != nil:
			c.logger.Warn("create failed", "id", r.ID, "source", src.String(), "error", err.Error())
		case !ok:
			c.logger.Warn("create rejected by store", "id", r.ID, "source", src.String())
		}

		c.SetNeedsRefresh(true)
	})
	return true
}

// Delete removes r from the cache and the store.
//
// The store, not the cache, decides whether r exists: if the store has no
// record with r.ID, Delete returns false and changes nothing. Otherwise it
// returns the store's delete outcome.
func (c *Controller) Delete(ctx context.Context, r Record) bool {
	var result bool

	c.withLock(func() {
		src, st := c.currentStore()

		existing, err := st.Read(ctx, r.ID)
		if err != nil {
			c.logger.Warn("delete lookup failed", "id", r.ID, "source", src.String(), "error", err.Error())
			return
		}
		if existing == nil {
			return
		}

		c.cache.Remove(r.ID)

		ok, err := st.Delete(ctx, r.ID)
		if err != nil {
			c.logger.Warn("delete failed", "id", r.ID, "source", src.String(), "error", err.Error())
			return
		}
		result = ok
		if ok {
			c.SetNeedsRefresh(true)
		}
	})
	return result
}

// Update merges the non-zero fields of r into the stored record with the
// same ID and persists it.
//
// If the store has no such record, Update returns false and changes
// nothing. Otherwise it always follows the write with a full load, whatever
// the write's outcome, and returns the store's update outcome. The load
// makes every update cost a full fetch of the store.
func (c *Controller) Update(ctx context.Context, r Record) bool {
	var result bool

	c.withLock(func() {
		src, st := c.currentStore()

		existing, err := st.Read(ctx, r.ID)
		if err != nil {
			c.logger.Warn("update lookup failed", "id", r.ID, "source", src.String(), "error", err.Error())
			return
		}
		if existing == nil {
			return
		}

		merged := existing.Merge(r)
		ok, err := st.Update(ctx, merged)
		if err != nil {
			c.logger.Warn("update failed", "id", r.ID, "source", src.String(), "error", err.Error())
		}

		c.loadLocked(ctx)

		result = ok && err == nil
		if result {
			c.SetNeedsRefresh(true)
		}
	})
	return result
}

// Read returns the record with the given ID straight from the selected
// store, bypassing the cache. It returns nil when the record does not
// exist and an error only when the store fails.
func (c *Controller) Read(ctx context.Context, id string) (*Record, error) {
	_, st := c.currentStore()
	return st.Read(ctx, id)
}

// WipeDataList clears the selected store and sets the needs-refresh flag.
// The cache is left as is until the next load.
func (c *Controller) WipeDataList(ctx context.Context) {
	c.withLock(func() {
		src, st := c.currentStore()
		if err := st.Wipe(ctx); err != nil {
			c.logger.Warn("wipe failed", "source", src.String(), "error", err.Error())
		}
		c.SetNeedsRefresh(true)
	})
}

// NeedsRefresh reports whether the store changed since the last call, and
// resets the flag.
func (c *Controller) NeedsRefresh() bool {
	return c.needsRefresh.Swap(false)
}

// SetNeedsRefresh sets the needs-refresh flag.
func (c *Controller) SetNeedsRefresh(v bool) {
	c.needsRefresh.Store(v)
}
