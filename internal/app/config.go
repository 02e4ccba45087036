package app

import (
	"io"

	"wasdeploy/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured logLevel.
	Debug bool

	// ConfigPath is the YAML or TOML file to load. Empty means
	// config.DefaultConfigFile in the working directory.
	ConfigPath string

	// LogOutput receives log lines. Defaults to os.Stderr so command
	// output on stdout stays machine readable.
	LogOutput io.Writer

	// Settings, when set, is used instead of loading ConfigPath.
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
