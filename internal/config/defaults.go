package config

import "time"

const (
	DefaultPrefix     = "config_backup_"
	DefaultExtension  = ".zip"
	DefaultMaxBackups = 7
)

// DefaultItems is the list of home-relative paths backed up when no
// config file overrides it.
var DefaultItems = []string{
	".bash_profile",
	".bash_history",
	".bash_sessions",
	".bashrc",
	".bash_logout",
	".BurpSuite",
	".CFUserTextEncoding",
	".cups",
	".gam",
	".gitconfig",
	".profile",
	".ssh",
	".viminfo",
	".vscode",
	".zprofile",
	".zsh_history",
	".zsh_sessions",
	".zshrc",
}

// Default returns the built-in configuration. Paths are unexpanded; call
// Resolve before use.
func Default() Config {
	return Config{
		BaseDir:    "~",
		OutputDir:  "~/ConfigBackups",
		Items:      append([]string(nil), DefaultItems...),
		MaxBackups: DefaultMaxBackups,
		Archive: ArchiveConfig{
			Prefix:           DefaultPrefix,
			Extension:        DefaultExtension,
			CompressionLevel: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   defaultLogFile,
		},
		Schedule: ScheduleConfig{
			Cron: "@daily",
		},
		ConfigReload: ReloadConfig{
			Enabled:        true,
			Mode:           "auto",
			PollInterval:   5 * time.Second,
			DebounceWindow: 500 * time.Millisecond,
		},
	}
}
