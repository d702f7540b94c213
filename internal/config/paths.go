package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	ProbeCache string // SQLite probe result cache
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		ProbeCache: filepath.Join(cfg.BaseDir, "probes.db"),
	}
}

// DefaultBaseDir returns the default cache directory ($XDG_CACHE_HOME/testkit).
func DefaultBaseDir() string {
	return filepath.Join(xdg.CacheHome, "testkit")
}

// DefaultLogDir returns the default log directory ($XDG_STATE_HOME/testkit).
func DefaultLogDir() string {
	return filepath.Join(xdg.StateHome, "testkit")
}
