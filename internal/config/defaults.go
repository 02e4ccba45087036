package config

import (
	"github.com/creasty/defaults"
)

// Per-kind defaults applied after loading when the file left them unset.
const (
	DefaultRemoteHTTPPort = 9080
	DefaultSOAPUsername   = "admin"
	DefaultSOAPPassword   = "admin"
)

// GetDefaultConfig returns a configuration with every struct-tag default set.
func GetDefaultConfig() Config {
	var cfg Config
	defaults.MustSet(&cfg)
	return cfg
}

// applyKindDefaults fills values whose default depends on the selected kind.
func applyKindDefaults(cfg *Config) {
	switch cfg.Kind {
	case KindLibertyRemote:
		if cfg.Server.HTTPPort == 0 {
			cfg.Server.HTTPPort = DefaultRemoteHTTPPort
		}
	case KindWASRemote:
		if cfg.Credentials.Username == "" {
			cfg.Credentials.Username = DefaultSOAPUsername
		}
		if cfg.Credentials.Password == "" {
			cfg.Credentials.Password = DefaultSOAPPassword
		}
	}
}
