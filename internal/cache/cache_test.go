package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/itemsync/store"
)

func ids(records []store.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestCache_AppendKeepsInsertionOrder(t *testing.T) {
	c := New()
	c.Append(store.Record{ID: "1", Name: "Z"})
	c.Append(store.Record{ID: "2", Name: "A"})

	got := ids(c.Snapshot())
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("Snapshot() IDs = %v, want [1 2]", got)
	}
}

func TestCache_AppendReplacesSameID(t *testing.T) {
	c := New()
	c.Append(store.Record{ID: "1", Name: "old"})
	c.Append(store.Record{ID: "2", Name: "other"})
	c.Append(store.Record{ID: "1", Name: "new"})

	snap := c.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Len = %d, want 2", len(snap))
	}
	if snap[0].ID != "1" || snap[0].Name != "new" {
		t.Errorf("snap[0] = %+v, want replaced in place", snap[0])
	}
}

func TestCache_Remove(t *testing.T) {
	c := New()
	c.Append(store.Record{ID: "1"})
	c.Append(store.Record{ID: "2"})
	c.Append(store.Record{ID: "3"})

	if !c.Remove("2") {
		t.Error("Remove(2) = false, want true")
	}
	if c.Remove("2") {
		t.Error("second Remove(2) = true, want false")
	}

	got := ids(c.Snapshot())
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("Snapshot() IDs = %v, want [1 3]", got)
	}
	if c.Contains("2") {
		t.Error("Contains(2) = true after Remove")
	}
}

func TestCache_ClearAndReset(t *testing.T) {
	c := New()
	c.Append(store.Record{ID: "1"})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}

	c.Reset([]store.Record{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	got := ids(c.Snapshot())
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Snapshot() IDs after Reset = %v, want [a b]", got)
	}
}

func TestCache_SnapshotIsCopy(t *testing.T) {
	c := New()
	c.Append(store.Record{ID: "1", Name: "A"})

	snap := c.Snapshot()
	snap[0].Name = "mutated"

	if c.Snapshot()[0].Name != "A" {
		t.Error("cache mutated through Snapshot() result")
	}
}

func TestCache_SubscribeReceivesChanges(t *testing.T) {
	c := New()
	ch := c.Subscribe()
	defer c.Unsubscribe(ch)

	c.Append(store.Record{ID: "1"})
	c.Remove("1")
	c.Clear()
	c.Reset([]store.Record{{ID: "x"}})

	want := []Kind{Added, Removed, Cleared, Reset}
	for i, k := range want {
		select {
		case change := <-ch:
			if change.Kind != k {
				t.Errorf("change %d Kind = %q, want %q", i, change.Kind, k)
			}
		case <-time.After(time.Second):
			t.Fatalf("change %d not received", i)
		}
	}
}

func TestCache_RemoveMissingDoesNotNotify(t *testing.T) {
	c := New()
	ch := c.Subscribe()
	defer c.Unsubscribe(ch)

	c.Remove("missing")

	select {
	case change := <-ch:
		t.Errorf("unexpected change %+v", change)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCache_Unsubscribe(t *testing.T) {
	c := New()
	ch := c.Subscribe()
	c.Unsubscribe(ch)
	c.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("channel should be closed immediately")
	}
}

func TestCache_SlowSubscriberDoesNotBlock(t *testing.T) {
	c := New()
	_ = c.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3*subscriberBuffer; i++ {
			c.Append(store.Record{ID: fmt.Sprint(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Append() blocked on slow subscriber")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("%d-%d", g, j)
				c.Append(store.Record{ID: id})
				_ = c.Snapshot()
				c.Remove(id)
			}
		}(i)
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := c.Subscribe()
			time.Sleep(5 * time.Millisecond)
			c.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
