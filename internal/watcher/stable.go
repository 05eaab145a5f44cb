package watcher

import (
	"time"
)

// isStable reports whether the file keeps the observed state for the
// stability window.
func (w *Watcher) isStable(seen fileState) bool {
	w.mu.RLock()
	stability := w.stability
	w.mu.RUnlock()

	time.Sleep(stability)

	return w.stat().same(seen)
}
