package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate reports every problem found in c, joined into one error.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.BaseDir == "" {
		add("baseDir is empty")
	}
	if c.OutputDir == "" {
		add("outputDir is empty")
	}
	if len(c.Items) == 0 {
		add("items is empty")
	}
	for i, item := range c.Items {
		if err := validateItem(item); err != nil {
			add("items[%d] %q: %v", i, item, err)
		}
	}
	if c.MaxBackups < 1 {
		add("maxBackups must be at least 1, got %d", c.MaxBackups)
	}

	if c.Archive.Prefix == "" || strings.ContainsAny(c.Archive.Prefix, `/\`) {
		add("archive.prefix %q must be a non-empty file name prefix", c.Archive.Prefix)
	}
	if strings.HasPrefix(c.Archive.Prefix, ".") {
		add("archive.prefix %q must not start with a dot", c.Archive.Prefix)
	}
	if !strings.HasPrefix(c.Archive.Extension, ".") || strings.ContainsAny(c.Archive.Extension, `/\`) {
		add("archive.extension %q must start with a dot", c.Archive.Extension)
	}
	if c.Archive.CompressionLevel < -1 || c.Archive.CompressionLevel > 9 {
		add("archive.compressionLevel must be between -1 and 9, got %d", c.Archive.CompressionLevel)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		add("logging.format %q is not one of text, json", c.Logging.Format)
	}

	if strings.TrimSpace(c.Schedule.Cron) == "" {
		add("schedule.cron is empty")
	} else if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		add("schedule.cron %q: %v", c.Schedule.Cron, err)
	}

	switch c.ConfigReload.Mode {
	case "auto", "poll", "fsnotify":
	default:
		add("configReload.mode %q is not one of auto, poll, fsnotify", c.ConfigReload.Mode)
	}
	if c.ConfigReload.Enabled && c.ConfigReload.PollInterval <= 0 {
		add("configReload.pollInterval must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func validateItem(item string) error {
	if strings.TrimSpace(item) == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(item) || strings.HasPrefix(item, "~") {
		return errors.New("must be relative to baseDir")
	}
	clean := filepath.Clean(item)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errors.New("must stay inside baseDir")
	}
	return nil
}
