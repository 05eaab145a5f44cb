//go:build !darwin

package config

const defaultLogFile = "~/.local/state/config-archiver/config_backup.log"
