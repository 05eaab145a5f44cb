package watcher

import (
	"github.com/raoulx24/config-archiver/internal/config"
)

// UpdateConfig applies reloaded timing settings. A different mode only
// takes effect after a restart.
func (w *Watcher) UpdateConfig(cfg config.ReloadConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cfg.Mode != w.mode {
		w.log.Warn("configReload.mode changes need a restart", "current", w.mode, "requested", cfg.Mode)
	}
	if cfg.PollInterval > 0 {
		w.interval = cfg.PollInterval
	}
	w.debounce = cfg.DebounceWindow
}
