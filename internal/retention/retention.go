// Package retention prunes old archives so that at most a fixed number
// remain in the output directory.
package retention

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"sync"

	"github.com/raoulx24/config-archiver/internal/archive"
	"github.com/raoulx24/config-archiver/internal/config"
	"github.com/raoulx24/config-archiver/internal/fs"
	"github.com/raoulx24/config-archiver/internal/logging"
	"github.com/raoulx24/config-archiver/internal/metrics"
)

type Engine struct {
	mu     sync.RWMutex
	dir    string
	naming archive.Naming
	keep   int

	fs      fs.FS
	log     logging.Logger
	metrics *metrics.Metrics
}

// Result describes one pruning pass. Kept and Deleted are in name order.
type Result struct {
	Kept    []archive.Archive
	Deleted []archive.Archive
	DryRun  bool
}

// New creates an engine for cfg.OutputDir. cfg must already be resolved.
func New(cfg config.Config, log logging.Logger, filesystem fs.FS, m *metrics.Metrics) *Engine {
	if filesystem == nil {
		filesystem = fs.New()
	}
	e := &Engine{fs: filesystem, log: log, metrics: m}
	e.UpdateConfig(cfg)
	return e
}

// UpdateConfig hot-reloads the output directory, naming and window.
func (e *Engine) UpdateConfig(cfg config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dir = cfg.OutputDir
	e.naming = archive.Naming{Prefix: cfg.Archive.Prefix, Extension: cfg.Archive.Extension}
	e.keep = cfg.MaxBackups
}

// List returns the archives in the output directory, oldest first.
func (e *Engine) List() ([]archive.Archive, error) {
	e.mu.RLock()
	dir, naming := e.dir, e.naming
	e.mu.RUnlock()

	return scanArchives(e.fs, dir, naming)
}

// Apply deletes every archive except the newest ones. It stops at the first
// deletion failure; the error is logged and returned, and callers treat it
// as non-fatal.
func (e *Engine) Apply(ctx context.Context) (Result, error) {
	res, err := e.run(ctx, false)
	if err != nil {
		e.metrics.PruneFailed()
		e.log.Error("cleanup failed", "error", err)
	}
	e.metrics.Pruned(len(res.Deleted))
	return res, err
}

// Plan reports what Apply would delete without touching the filesystem.
func (e *Engine) Plan(ctx context.Context) (Result, error) {
	return e.run(ctx, true)
}

func (e *Engine) run(ctx context.Context, dryRun bool) (Result, error) {
	e.mu.RLock()
	dir, naming, keep := e.dir, e.naming, e.keep
	e.mu.RUnlock()

	res := Result{DryRun: dryRun}

	archives, err := scanArchives(e.fs, dir, naming)
	if err != nil {
		return res, err
	}

	if len(archives) <= keep {
		res.Kept = archives
		return res, nil
	}

	cut := len(archives) - keep
	toDelete, toKeep := archives[:cut], archives[cut:]
	res.Kept = toKeep

	for i, a := range toDelete {
		if dryRun {
			res.Deleted = append(res.Deleted, a)
			continue
		}
		if err := e.fs.Remove(ctx, a.Path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			// whatever was not removed is still on disk
			res.Kept = append(append([]archive.Archive(nil), toDelete[i:]...), res.Kept...)
			return res, fmt.Errorf("removing %s: %w", a.Name, err)
		}
		res.Deleted = append(res.Deleted, a)
		e.log.Info("removed old backup", "archive", a.Name)
	}

	return res, nil
}
