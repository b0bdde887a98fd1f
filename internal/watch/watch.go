// Package watch notices changes made to the persistent database by other
// processes.
//
// A [Watcher] observes the directory holding a SQLite database and calls a
// callback when the database file or its write-ahead log changes. Bursts of
// file system events are collapsed into a single call.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when a non-positive debounce is given.
const DefaultDebounce = 250 * time.Millisecond

// Watcher calls a callback after the watched database changes on disk.
type Watcher struct {
	dir      string
	names    map[string]struct{}
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fired atomic.Uint64
}

// New creates a [Watcher] for the database at path. onChange is called from
// the watcher goroutine once events on the database stop arriving for the
// debounce period.
func New(path string, debounce time.Duration, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("onChange cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	base := filepath.Base(abs)
	return &Watcher{
		dir: filepath.Dir(abs),
		names: map[string]struct{}{
			base:          {},
			base + "-wal": {},
		},
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Start begins watching. It returns an error if the database directory
// cannot be watched or the watcher was already started or closed.
//
// The watcher stops when ctx is cancelled or [Watcher.Close] is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("watcher closed")
	}
	if w.running {
		return errors.New("watcher already running")
	}

	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Debug("watching database", "dir", w.dir, "debounce", w.debounce.String())
	return nil
}

// Close stops the watcher and releases its resources. Close is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Fired returns how many times the callback has been called.
func (w *Watcher) Fired() uint64 {
	return w.fired.Load()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.fired.Add(1)
			w.notify()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("database watch error", "dir", w.dir, "error", err.Error())
		}
	}
}

// relevant reports whether ev touches the database or its WAL.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if _, ok := w.names[filepath.Base(ev.Name)]; !ok {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) notify() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("database change callback panicked", "panic", r)
		}
	}()
	w.onChange()
}
