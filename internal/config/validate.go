package config

import (
	"fmt"
	"net/url"
	"strings"
)

var validLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}

var validFormats = map[string]bool{"": true, "text": true, "json": true}

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Host.RequestTimeoutMs < -1 {
		return fmt.Errorf("host: request_timeout_ms must be >= -1")
	}
	if cfg.Host.MaxRequests < 0 || cfg.Host.MaxRequests > 1<<16 {
		return fmt.Errorf("host: max_requests must be in [0, 65536]")
	}
	if cfg.Host.RetainResolvedMs < 0 {
		return fmt.Errorf("host: retain_resolved_ms must be >= 0")
	}
	if cfg.Host.ReapIntervalMs < -1 {
		return fmt.Errorf("host: reap_interval_ms must be >= -1")
	}

	if cfg.Storage.InMemory && cfg.Storage.Dir != "" {
		return fmt.Errorf("storage: dir and in_memory are mutually exclusive")
	}
	if cfg.Storage.GCIntervalMs < -1 {
		return fmt.Errorf("storage: gc_interval_ms must be >= -1")
	}
	if cfg.Storage.MaxValueSize < 0 {
		return fmt.Errorf("storage: max_value_size must be >= 0")
	}

	if cfg.Pool.Capacity < 0 || cfg.Pool.MaxTxSize < 0 {
		return fmt.Errorf("pool: capacity and max_tx_size must be >= 0")
	}

	if !validLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	if !validFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("log: unknown format %q", cfg.Log.Format)
	}

	seen := make(map[string]bool, len(cfg.Tasks))
	for i, task := range cfg.Tasks {
		if task.ID == "" {
			return fmt.Errorf("tasks[%d]: id is required", i)
		}
		if seen[task.ID] {
			return fmt.Errorf("task %q: duplicate id", task.ID)
		}
		seen[task.ID] = true

		u, err := url.Parse(task.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("task %q: url must be an absolute http(s) URL", task.ID)
		}
		if task.IntervalMs < 0 {
			return fmt.Errorf("task %q: interval_ms must be >= 0", task.ID)
		}
		if task.TimeoutMs < 0 {
			return fmt.Errorf("task %q: timeout_ms must be >= 0", task.ID)
		}
		if task.MaxBodySize < 0 {
			return fmt.Errorf("task %q: max_body_size must be >= 0", task.ID)
		}
		if task.Submit && cfg.Signer.SeedFile == "" {
			return fmt.Errorf("task %q: submit requires signer.seed_file", task.ID)
		}
	}

	return nil
}
