package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/raoulx24/config-archiver/internal/archiver"
	"github.com/raoulx24/config-archiver/internal/config"
	"github.com/raoulx24/config-archiver/internal/fs"
	"github.com/raoulx24/config-archiver/internal/logging"
	"github.com/raoulx24/config-archiver/internal/metrics"
	"github.com/raoulx24/config-archiver/internal/retention"
)

// app is the set of components shared by the subcommands.
type app struct {
	mu  sync.RWMutex
	cfg config.Config

	log      logging.Logger
	closer   io.Closer
	metrics  *metrics.Metrics
	pruner   *retention.Engine
	archiver *archiver.Archiver
}

// loadConfig reads, resolves and validates the configuration.
func loadConfig(opts *globalOptions) (config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath, opts.explicit)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolving home directory: %w", err)
	}

	resolved := cfg.Resolve(home)
	if err := resolved.Validate(); err != nil {
		return config.Config{}, err
	}
	return resolved, nil
}

// newApp wires logging, metrics, retention and the archiver. With noPrune
// the archiver runs without a pruner.
func newApp(opts *globalOptions, stdout io.Writer, noPrune bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, closer, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Stdout: stdout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising logging: %w", err)
	}

	m := metrics.New()
	fsys := fs.New()
	engine := retention.New(cfg, log, fsys, m)

	var pruner archiver.Pruner
	if !noPrune {
		pruner = engine
	}

	return &app{
		cfg:      cfg,
		log:      log,
		closer:   closer,
		metrics:  m,
		pruner:   engine,
		archiver: archiver.New(cfg, log, pruner, m, fsys),
	}, nil
}

// applyConfig hands a reloaded configuration to the long-lived components.
func (a *app) applyConfig(cfg config.Config) {
	if cfg.Logging != a.cfg.Logging {
		a.log.Warn("logging changes need a restart")
	}
	a.archiver.UpdateConfig(cfg)
	a.pruner.UpdateConfig(cfg)

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
}

// writeMetrics exports the registry to the textfile, if configured.
func (a *app) writeMetrics() {
	a.mu.RLock()
	path := a.cfg.Metrics.Textfile
	a.mu.RUnlock()

	if err := a.metrics.WriteTextfile(path); err != nil {
		a.log.Warn("writing metrics textfile failed", "path", path, "error", err)
	}
}

func (a *app) Close() error {
	return a.closer.Close()
}
