package watcher

import (
	"context"
	"time"
)

// StartPolling triggers detect() on a fixed interval.
func (w *Watcher) StartPolling(ctx context.Context) {
	w.mu.RLock()
	interval := w.interval
	w.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.detect()

			// pick up a reloaded interval
			w.mu.RLock()
			next := w.interval
			w.mu.RUnlock()
			if next != interval && next > 0 {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}
