// Package config provides configuration loading and defaults for rolo.
//
// Configuration is optional. It is read from a TOML file (see
// [paths.ConfigPath]) and only supplies defaults: command-line flags always
// take precedence.
package config

//go:generate go run ../../cmd/genconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/rolo/internal/address"
	"tools.zach/dev/rolo/internal/paths"
)

// CurrentVersion is the config schema version this build understands.
const CurrentVersion = 1

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Lock holds defaults for the lock address.
	Lock LockConfig `toml:"lock"`
	// Log holds diagnostics settings.
	Log LogConfig `toml:"log"`
}

// LockConfig holds defaults for the lock address.
type LockConfig struct {
	// Address is a default dotted-quad bind address; empty means the
	// per-user loopback address.
	Address string `toml:"address"`
}

// LogConfig holds diagnostics settings.
type LogConfig struct {
	// Verbose behaves as if --verbose were always given.
	Verbose bool `toml:"verbose"`
	// Level is the minimum level written to File (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// File is an optional rotating log file. Relative paths are resolved
	// against the directory holding the config file.
	File string `toml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Lock: LockConfig{
			Address: "",
		},
		Log: LogConfig{
			Verbose:   false,
			Level:     "info",
			File:      "",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path. If the file doesn't
// exist, returns DefaultConfig. Unknown keys are rejected so that typos do not
// silently fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("parse config: unknown keys %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.Log.File = paths.ConfigDir{Root: filepath.Dir(path)}.Resolve(cfg.Log.File)
	return cfg, nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Version > CurrentVersion {
		return fmt.Errorf("config version %d is newer than supported version %d", c.Version, CurrentVersion)
	}

	if c.Lock.Address != "" && !address.Valid(c.Lock.Address) {
		return fmt.Errorf("invalid lock.address %q: must be a dotted-quad IPv4 address", c.Lock.Address)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}
