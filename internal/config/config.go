// Package config holds the immutable configuration of a backup run and
// loads it from an optional YAML file.
package config

import "time"

type Config struct {
	BaseDir      string         `yaml:"baseDir"`
	OutputDir    string         `yaml:"outputDir"`
	Items        []string       `yaml:"items"`
	MaxBackups   int            `yaml:"maxBackups"`
	Archive      ArchiveConfig  `yaml:"archive"`
	Logging      LoggingConfig  `yaml:"logging"`
	Schedule     ScheduleConfig `yaml:"schedule"`
	ConfigReload ReloadConfig   `yaml:"configReload"`
	Metrics      MetricsConfig  `yaml:"metrics"`
}

type ArchiveConfig struct {
	Prefix           string `yaml:"prefix"`
	Extension        string `yaml:"extension"`
	CompressionLevel int    `yaml:"compressionLevel"` // flate level, 0-9
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
	File   string `yaml:"file"`   // empty disables the file sink
}

type ScheduleConfig struct {
	Cron       string `yaml:"cron"` // standard 5-field spec or @daily style descriptor
	RunOnStart bool   `yaml:"runOnStart"`
}

type ReloadConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Mode           string        `yaml:"mode"` // "auto", "poll", "fsnotify"
	PollInterval   time.Duration `yaml:"pollInterval"`
	DebounceWindow time.Duration `yaml:"debounceWindow"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile collector target
	Listen   string `yaml:"listen"`   // daemon only, e.g. ":9310"
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	c.Items = append([]string(nil), c.Items...)
	return c
}
