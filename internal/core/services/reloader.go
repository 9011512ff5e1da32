package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/quasar/internal/core/domain"
	"github.com/custodia-labs/quasar/internal/core/ports/driven"
	"github.com/custodia-labs/quasar/internal/core/ports/driving"
	"github.com/custodia-labs/quasar/internal/logger"
)

// Reloader keeps the snapshot and index current in long-running modes.
// On each change notification (or poll tick) it reloads the snapshot and
// starts a reindex, cancelling any reindex still running for an older snapshot.
type Reloader struct {
	snapshots driving.SnapshotSource
	indexer   driving.IndexService
	watcher   driven.DatasetWatcher
	interval  time.Duration

	// OnReindex is called after each finished reindex run, with its error.
	OnReindex func(*domain.ReindexResult, error)

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	cancelRx context.CancelFunc
	wg       sync.WaitGroup
}

// NewReloader creates a reloader. watcher may be nil; interval <= 0 disables polling.
func NewReloader(
	snapshots driving.SnapshotSource,
	indexer driving.IndexService,
	watcher driven.DatasetWatcher,
	interval time.Duration,
) *Reloader {
	return &Reloader{
		snapshots: snapshots,
		indexer:   indexer,
		watcher:   watcher,
		interval:  interval,
	}
}

// Start runs the reload loop. It blocks until Stop is called or ctx is done.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	var events <-chan struct{}
	if r.watcher != nil {
		ch, err := r.watcher.Watch(ctx)
		if err != nil {
			logger.Warn("reloader: watch failed, falling back to polling: %v", err)
		} else {
			events = ch
		}
	}

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Index whatever is live at startup.
	r.trigger(ctx, false)

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			r.cancelInFlight()
			r.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			logger.Debug("reloader: change notification")
			r.trigger(ctx, true)
		case <-tick:
			r.trigger(ctx, true)
		}
	}
}

// Stop cancels any in-flight reindex and waits for it to exit.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.cancelInFlight()
	r.wg.Wait()
	return nil
}

// trigger optionally reloads the snapshot, then replaces the in-flight reindex
// with one for the live snapshot.
func (r *Reloader) trigger(ctx context.Context, reload bool) {
	if reload {
		if _, err := r.snapshots.Reload(ctx); err != nil {
			logger.Warn("reloader: reload failed, keeping previous snapshot: %v", err)
			return
		}
	}
	snapshot := r.snapshots.Current()
	if snapshot == nil {
		return
	}

	// The superseded run must release the indexer before the new one starts.
	r.cancelInFlight()
	r.wg.Wait()

	// Stop flips running under mu before it waits, so registering the run
	// under the same lock keeps wg.Add from racing wg.Wait.
	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		cancel()
		return
	}
	r.cancelRx = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()

		res, err := r.indexer.Reindex(runCtx, snapshot)
		if errors.Is(err, context.Canceled) {
			logger.Debug("reloader: reindex superseded")
		} else if err != nil {
			logger.Warn("reloader: reindex failed: %v", err)
		}
		if r.OnReindex != nil {
			r.OnReindex(res, err)
		}
	}()
}

func (r *Reloader) cancelInFlight() {
	r.mu.Lock()
	cancel := r.cancelRx
	r.cancelRx = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
