package events

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultQueueSize is the bus buffer used when a non-positive size is given.
const DefaultQueueSize = 64

// Handler processes one event. It is called from the bus worker goroutine,
// never concurrently with itself.
type Handler func(ctx context.Context, ev Event)

// Stats counts what happened to published events.
type Stats struct {
	Published uint64 `json:"published"`
	Handled   uint64 `json:"handled"`
	Dropped   uint64 `json:"dropped"`
	Panicked  uint64 `json:"panicked"`
}

// Bus is a single ordered queue consumed by one worker.
//
// Publish never blocks: when the queue is full or the bus is stopped the
// event is dropped. The handler is registered at construction and invoked
// for each queued event in publish order. A panicking handler is recovered
// and logged; the worker keeps going.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Bus struct {
	handler Handler
	queue   chan Event
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	published atomic.Uint64
	handled   atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64
}

// NewBus creates a [Bus] delivering to handler.
//
// size is the queue capacity; non-positive values use [DefaultQueueSize].
// Events may be published before [Bus.Start]; they are held in the queue
// until the worker runs.
func NewBus(handler Handler, size int, logger *slog.Logger) *Bus {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handler: handler,
		queue:   make(chan Event, size),
		logger:  logger,
	}
}

// Publish queues ev for delivery. Returns false if ev was dropped.
func (b *Bus) Publish(ev Event) bool {
	if ev == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		b.dropped.Add(1)
		b.logger.Warn("event dropped, bus stopped", "topic", ev.Topic().String(), "sender", ev.From())
		return false
	}

	select {
	case b.queue <- ev:
		b.published.Add(1)
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn("event dropped, queue full", "topic", ev.Topic().String(), "sender", ev.From())
		return false
	}
}

// Start launches the worker goroutine.
//
// Start is non-blocking and idempotent. If Stop was called before Start,
// Start is a no-op. The worker exits when ctx is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started || b.stopped {
		b.mu.Unlock()
		return
	}
	b.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-b.queue:
				b.dispatch(ctx, ev)
			}
		}
	}()
}

// Stop halts the worker and waits for the event being handled to finish.
// Events still queued are discarded. Stop is idempotent.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		if b.cancel != nil {
			b.cancel()
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Handled:   b.handled.Load(),
		Dropped:   b.dropped.Load(),
		Panicked:  b.panicked.Load(),
	}
}

// dispatch calls the handler with panic recovery.
func (b *Bus) dispatch(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panicked.Add(1)
			b.logger.Error("event handler panic",
				"correlation_id", uuid.NewString(),
				"topic", ev.Topic().String(),
				"sender", ev.From(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	b.handler(ctx, ev)
	b.handled.Add(1)
}
