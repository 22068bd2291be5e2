package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultMethod      = "GET"
	DefaultIntervalMs  = 60_000
	DefaultTimeoutMs   = 10_000
	DefaultMaxBodySize = 1 << 20
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultStorageDir  = "offchaind-data"
)

// Normalize fills defaults. It must be called only after Validate.
// Host, storage and pool zero values are left for the component Options
// to default.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if !cfg.Storage.InMemory && cfg.Storage.Dir == "" {
		cfg.Storage.Dir = DefaultStorageDir
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	for i := range cfg.Tasks {
		t := &cfg.Tasks[i]
		if t.Method == "" {
			t.Method = DefaultMethod
		}
		t.Method = strings.ToUpper(t.Method)
		if t.StorageKey == "" {
			t.StorageKey = "task:" + t.ID
		}
		if t.IntervalMs == 0 {
			t.IntervalMs = DefaultIntervalMs
		}
		if t.TimeoutMs == 0 {
			t.TimeoutMs = DefaultTimeoutMs
		}
		if t.MaxBodySize == 0 {
			t.MaxBodySize = DefaultMaxBodySize
		}
	}
}
