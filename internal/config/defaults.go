package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),
		LogDir:  DefaultLogDir(),

		Python: PythonConfig{
			Executable:   "python3",
			ProbeTimeout: 60 * time.Second, // torch_ort.configure compiles extensions
			Workers:      4,
		},

		Cache: CacheConfig{
			TTL: time.Hour,
		},
	}
}
