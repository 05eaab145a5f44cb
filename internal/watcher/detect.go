package watcher

import (
	"os"
)

// detect calls onChange if the file differs from the last state seen.
func (w *Watcher) detect() {
	now := w.stat()

	w.mu.RLock()
	last := w.last
	w.mu.RUnlock()

	if now.same(last) {
		return
	}
	if now.exists && !w.isStable(now) {
		// still being written; the next event or tick retries
		return
	}

	w.mu.Lock()
	w.last = now
	w.mu.Unlock()

	if !now.exists {
		w.log.Warn("config file removed, keeping current configuration", "path", w.path)
		return
	}

	w.log.Info("config file changed", "path", w.path)
	w.onChange()
}

func (w *Watcher) stat() fileState {
	w.mu.RLock()
	path := w.path
	w.mu.RUnlock()

	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), exists: true}
}
