// Package config handles testkit configuration, read from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all testkit configuration.
type Config struct {
	// Base directory for cached data ($XDG_CACHE_HOME/testkit)
	BaseDir string

	// Directory for the CLI log file ($XDG_STATE_HOME/testkit)
	LogDir string

	// Python interpreter used to probe optional dependencies
	Python PythonConfig

	// On-disk probe result cache
	Cache CacheConfig

	// Credentials that gate hub and experiment-tracking tests
	Credentials CredentialsConfig
}

// PythonConfig holds interpreter and probing settings.
type PythonConfig struct {
	// Interpreter name or path (TESTKIT_PYTHON, then PYTHON, default python3)
	Executable string
	// Upper bound for a single probe (TESTKIT_PROBE_TIMEOUT)
	ProbeTimeout time.Duration
	// Probes run concurrently by DetectAll (TESTKIT_PROBE_WORKERS)
	Workers int
}

// CacheConfig holds probe cache settings.
type CacheConfig struct {
	// How long a probe result stays valid; 0 disables the cache (TESTKIT_PROBE_CACHE_TTL)
	TTL time.Duration
}

// Enabled reports whether probe results are cached on disk.
func (c CacheConfig) Enabled() bool {
	return c.TTL > 0
}

// CredentialsConfig holds tokens read from the environment.
type CredentialsConfig struct {
	// HF_AUTH_TOKEN is used instead of HF_TOKEN so huggingface_hub does not pick it up.
	HFToken       string
	SigoptToken   string
	SigoptProject string
}

// Environment variable names.
const (
	EnvPython         = "TESTKIT_PYTHON"
	EnvPythonFallback = "PYTHON"
	EnvProbeTimeout   = "TESTKIT_PROBE_TIMEOUT"
	EnvProbeWorkers   = "TESTKIT_PROBE_WORKERS"
	EnvCacheTTL       = "TESTKIT_PROBE_CACHE_TTL"
	EnvCacheDir       = "TESTKIT_CACHE_DIR"
	EnvLogDir         = "TESTKIT_LOG_DIR"
	EnvHFToken        = "HF_AUTH_TOKEN"
	EnvSigoptToken    = "SIGOPT_API_TOKEN"
	EnvSigoptProject  = "SIGOPT_PROJECT"
)

// Load reads configuration from environment variables.
// Malformed numeric or duration values fall back to the defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if dir := os.Getenv(EnvCacheDir); dir != "" {
		cfg.BaseDir = dir
	}
	if dir := os.Getenv(EnvLogDir); dir != "" {
		cfg.LogDir = dir
	}

	if python := os.Getenv(EnvPython); python != "" {
		cfg.Python.Executable = python
	} else if python := os.Getenv(EnvPythonFallback); python != "" {
		cfg.Python.Executable = python
	}

	cfg.Python.ProbeTimeout = durationEnv(EnvProbeTimeout, cfg.Python.ProbeTimeout)
	cfg.Cache.TTL = durationEnv(EnvCacheTTL, cfg.Cache.TTL)

	if n, err := strconv.Atoi(os.Getenv(EnvProbeWorkers)); err == nil && n > 0 {
		cfg.Python.Workers = n
	}

	cfg.Credentials = CredentialsConfig{
		HFToken:       os.Getenv(EnvHFToken),
		SigoptToken:   os.Getenv(EnvSigoptToken),
		SigoptProject: os.Getenv(EnvSigoptProject),
	}

	return cfg, nil
}

// durationEnv parses key as a time.Duration. A bare integer is read as seconds.
func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
