package engine

import (
	"context"
	"fmt"

	"github.com/LegoTypes/synthformula/internal/orchestrator"
	"github.com/LegoTypes/synthformula/internal/storage"
	"github.com/LegoTypes/synthformula/internal/types"
)

// Reload swaps in a new SensorSet, rebuilding the orchestrator against the
// same compilation cache and clearing both caches and every circuit
// breaker (§8 "both caches are cleared before the first subsequent
// evaluation"). It is safe to call concurrently with Update/Read: both
// hold e.mu for the duration of their work.
func (e *Engine) Reload(set types.SensorSet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	opts := append(append([]orchestrator.Option{}, e.options...), orchestrator.WithCompileCache(e.compileCache))

	orch, err := orchestrator.Reload(set, e.catalog, e.ds, opts...)
	if err != nil {
		return fmt.Errorf("engine: reloading sensor set: %w", err)
	}
	e.orch = orch
	e.set = set
	e.cycles = 0
	return nil
}

// ReloadFromFile re-reads the bound Store's file and reloads (§6 Storage
// collaborator). Only valid on an Engine constructed with Open.
func (e *Engine) ReloadFromFile() error {
	e.mu.RLock()
	store := e.store
	e.mu.RUnlock()
	if store == nil {
		return fmt.Errorf("engine: ReloadFromFile requires an engine constructed with Open")
	}
	set, err := store.Load()
	if err != nil {
		return err
	}
	return e.Reload(set)
}

// WatchConfig starts watching the bound Store's file for external edits
// and reloads automatically on change, logging (rather than returning)
// reload errors so a single bad edit doesn't kill the watch loop — the
// Host keeps running against the last good configuration (§6, §8). Only
// valid on an Engine constructed with Open. The returned error channel
// surfaces load/decode failures for callers that want to observe them;
// it is closed when ctx is cancelled.
func (e *Engine) WatchConfig(ctx context.Context) (<-chan error, error) {
	e.mu.Lock()
	if e.store == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: WatchConfig requires an engine constructed with Open")
	}
	if e.watcher == nil {
		w, err := storage.NewWatcher(e.store, e.logger)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.watcher = w
	}
	watcher := e.watcher
	e.mu.Unlock()

	changes, errs := watcher.Watch(ctx)
	out := make(chan error, 10)
	go func() {
		defer close(out)
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				if err := e.Reload(change.Set); err != nil {
					e.logger.Error("engine: reload after configuration change failed", "error", err)
					out <- err
				}
			case err, ok := <-errs:
				if !ok {
					return
				}
				out <- err
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
