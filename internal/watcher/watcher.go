// Package watcher monitors the config file and reports changes so the
// daemon can reload it.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/raoulx24/config-archiver/internal/config"
	"github.com/raoulx24/config-archiver/internal/fsprobe"
	"github.com/raoulx24/config-archiver/internal/logging"
)

// Watcher observes one file and calls onChange when its content settles
// after a modification.
type Watcher struct {
	mu sync.RWMutex

	path      string
	interval  time.Duration
	mode      string
	debounce  time.Duration
	stability time.Duration

	log logging.Logger

	last fileState

	onChange func()
}

type fileState struct {
	modTime time.Time
	size    int64
	exists  bool
}

func (s fileState) same(o fileState) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

// New creates a watcher for path using the reload settings.
func New(path string, cfg config.ReloadConfig, log logging.Logger, onChange func()) *Watcher {
	w := &Watcher{
		path:      path,
		interval:  cfg.PollInterval,
		mode:      cfg.Mode,
		debounce:  cfg.DebounceWindow,
		stability: 100 * time.Millisecond,
		log:       log,
		onChange:  onChange,
	}
	w.last = w.stat()
	return w
}

// Start chooses the correct watching strategy based on config and blocks
// until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	mode := w.mode
	dir := filepath.Dir(w.path)
	w.mu.RUnlock()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobe.Probe(dir)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, polling config file", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}
