package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wasdeploy/pkg/logging"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file read when no path is given.
const DefaultConfigFile = "wasdeploy.yaml"

// LoadConfig reads the configuration file at path on top of the defaults
// and validates the result. A missing DefaultConfigFile yields the
// defaults; any other missing file is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	cfg := GetDefaultConfig()
	fileName := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && fileName == DefaultConfigFile {
			logging.Info("ConfigLoader", "No %s found, using defaults", path)
			applyKindDefaults(&cfg)
			return cfg, validated(cfg, path)
		}
		return Config{}, NewConfigurationError(path, fileName, ErrorTypeIO, "cannot read configuration file", err)
	}

	if err := decode(path, data, &cfg); err != nil {
		ce := NewConfigurationError(path, fileName, ErrorTypeParse, err.Error(), err)
		ce.LineNumber = lineOf(err)
		return Config{}, ce
	}
	applyKindDefaults(&cfg)

	logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	return cfg, validated(cfg, path)
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported configuration format %q", filepath.Ext(path))
	}
}

func validated(cfg Config, path string) error {
	err := Validate(cfg)
	if err == nil {
		return nil
	}
	ce := NewConfigurationError(path, filepath.Base(path), ErrorTypeValidation, err.Error(), err)
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			ce.Suggestions = append(ce.Suggestions, fmt.Sprintf("check '%s'", ve.Field))
		}
	}
	return ce
}

func lineOf(err error) int {
	var perr toml.ParseError
	if errors.As(err, &perr) {
		return perr.Position.Line
	}
	return 0
}
