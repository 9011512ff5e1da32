package csvdir

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/quasar/internal/logger"
)

// Watch notifies after each burst of changes to CSV files in the directory.
// Notifications coalesce: at most one is pending at a time.
func (p *Provider) Watch(ctx context.Context) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("csv: create watcher: %w", err)
	}
	if err := w.Add(p.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("csv: watch %s: %w", p.dir, err)
	}

	out := make(chan struct{}, 1)
	go p.watchLoop(ctx, w, out)
	return out, nil
}

func (p *Provider) watchLoop(ctx context.Context, w *fsnotify.Watcher, out chan<- struct{}) {
	defer close(out)
	defer w.Close()

	timer := time.NewTimer(p.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !relevantEvent(event) {
				continue
			}
			logger.Debug("csv: %s %s", event.Op, event.Name)
			timer.Reset(p.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("csv: watcher error: %v", err)
		case <-timer.C:
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

// relevantEvent reports whether event changes the content of a CSV dataset.
// Chmod and events on hidden or non-CSV files are ignored.
func relevantEvent(event fsnotify.Event) bool {
	if !isDatasetFile(event.Name) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
