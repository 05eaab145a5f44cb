//go:build darwin

package config

const defaultLogFile = "~/Library/Logs/config_backup.log"
