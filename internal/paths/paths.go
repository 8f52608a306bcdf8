// Package paths centralizes file and directory names used across the project.
// All configuration and log file names are defined here as the single source
// of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Configuration directory file names.
const (
	BinaryName   = "rolo"
	ConfigDirRel = "rolo" // relative to os.UserConfigDir
	ConfigFile   = "config.toml"
	LogFile      = "rolo.log"
)

// ConfigEnv names the environment variable that overrides the config file path.
const ConfigEnv = "ROLO_CONFIG"

// ///////////////////////////////////////////////
// ConfigDir
// ///////////////////////////////////////////////

// ConfigDir provides path construction methods rooted at a configuration
// directory.
type ConfigDir struct {
	Root string
}

// Config returns the full path to the config file.
func (d ConfigDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the default log file.
func (d ConfigDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Resolve returns p unchanged when it is absolute or empty, and joins it onto
// the directory root otherwise.
func (d ConfigDir) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.Root, p)
}

// DefaultConfigDir returns the platform configuration directory for rolo,
// typically ~/.config/rolo. Falls back to ./.rolo if the user configuration
// directory cannot be determined.
func DefaultConfigDir() ConfigDir {
	base, err := os.UserConfigDir()
	if err != nil {
		return ConfigDir{Root: filepath.Join(".", "."+ConfigDirRel)}
	}
	return ConfigDir{Root: filepath.Join(base, ConfigDirRel)}
}

// ConfigPath returns the config file location. [ConfigEnv] takes precedence
// over the default directory.
func ConfigPath() string {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}
	return DefaultConfigDir().Config()
}
