package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Change carries a freshly reloaded sensor set (§6/§8 "configuration
// reload" boundary).
type Change struct {
	Set types.SensorSet
}

// Watcher watches a Store's file for on-disk edits and emits a reloaded
// SensorSet for each distinct change, grounded on HotReloadSystem in
// 99souls-ariadne/engine/internal/runtime/runtime.go: a fsnotify.Watcher
// on the file's parent directory, filtered to Write events on the exact
// path, with a checksum guard against spurious duplicate decodes.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu         sync.Mutex
	isWatching bool
}

// NewWatcher creates a Watcher bound to store. logger may be nil, in which
// case slog.Default() is used.
func NewWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("storage: creating file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{store: store, watcher: w, logger: logger}, nil
}

// Watch starts watching the store's parent directory and returns channels
// of reloaded sensor sets and load/decode errors. Both channels close when
// ctx is cancelled or Stop is called. Calling Watch twice on the same
// Watcher is a no-op returning closed channels, matching the teacher's
// "already watching" guard.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, <-chan error) {
	changes := make(chan Change, 10)
	errs := make(chan error, 10)

	w.mu.Lock()
	if w.isWatching {
		w.mu.Unlock()
		close(changes)
		close(errs)
		return changes, errs
	}
	dir := filepath.Dir(w.store.Path())
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Unlock()
		errs <- fmt.Errorf("storage: watching directory %s: %w", dir, err)
		close(changes)
		close(errs)
		return changes, errs
	}
	w.isWatching = true
	w.mu.Unlock()

	go func() {
		defer close(changes)
		defer close(errs)
		for {
			select {
			case e, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if e.Name != w.store.Path() || e.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				changed, err := w.store.Changed()
				if err != nil {
					errs <- err
					continue
				}
				if !changed {
					continue
				}
				set, err := w.store.Load()
				if err != nil {
					w.logger.Error("storage: reload failed", "path", w.store.Path(), "error", err)
					errs <- err
					continue
				}
				w.logger.Debug("storage: configuration reloaded", "path", w.store.Path(), "sensors", len(set.Sensors))
				changes <- Change{Set: set}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				errs <- err
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, errs
}

// Stop closes the underlying fsnotify watcher, ending the Watch goroutine.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isWatching {
		return nil
	}
	w.isWatching = false
	return w.watcher.Close()
}
