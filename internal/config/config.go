// Package config loads the offchaind YAML configuration.
//
// The flow is Load, then Validate (declarative, no mutation), then Normalize
// (fills defaults). Durations are expressed in milliseconds to match the
// offchain time model.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Host    HostConfig    `yaml:"host"`
	Storage StorageConfig `yaml:"storage"`
	Signer  SignerConfig  `yaml:"signer"`
	Pool    PoolConfig    `yaml:"pool"`
	Log     LogConfig     `yaml:"log"`
	Tasks   []TaskConfig  `yaml:"tasks"`
}

// ---- HOST ----

type HostConfig struct {
	RequestTimeoutMs int `yaml:"request_timeout_ms"` // -1 disables
	MaxRequests      int `yaml:"max_requests"`
	RetainResolvedMs int `yaml:"retain_resolved_ms"`
	ReapIntervalMs   int `yaml:"reap_interval_ms"` // -1 disables
}

// ---- STORAGE ----

type StorageConfig struct {
	Dir          string `yaml:"dir"`
	InMemory     bool   `yaml:"in_memory"`
	GCIntervalMs int    `yaml:"gc_interval_ms"` // -1 disables
	MaxValueSize int    `yaml:"max_value_size"`
}

// ---- SIGNER ----

type SignerConfig struct {
	// SeedFile holds a hex-encoded 32-byte ed25519 seed. Empty disables signing.
	SeedFile string `yaml:"seed_file"`
}

// ---- POOL ----

type PoolConfig struct {
	Capacity  int `yaml:"capacity"`
	MaxTxSize int `yaml:"max_tx_size"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// ---- TASKS ----

type TaskConfig struct {
	ID          string            `yaml:"id"`
	Method      string            `yaml:"method"`
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers"`
	Body        string            `yaml:"body"`
	StorageKey  string            `yaml:"storage_key"`
	IntervalMs  int               `yaml:"interval_ms"`
	TimeoutMs   int               `yaml:"timeout_ms"`
	MaxBodySize int               `yaml:"max_body_size"`
	Submit      bool              `yaml:"submit"`
}

// Load reads and decodes the file at path. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration from data.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
