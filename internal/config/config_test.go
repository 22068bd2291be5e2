package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
host:
  request_timeout_ms: 5000
  max_requests: 64
storage:
  dir: /var/lib/offchaind
signer:
  seed_file: /etc/offchaind/seed.hex
log:
  level: DEBUG
  format: json
tasks:
  - id: eth-price
    url: https://api.example.com/price?pair=ETHUSD
    headers:
      Accept: application/json
    interval_ms: 30000
    submit: true
  - id: ping
    method: post
    url: http://localhost:8080/ping
    body: hello
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offchaind.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host.RequestTimeoutMs != 5000 || cfg.Host.MaxRequests != 64 {
		t.Errorf("host = %+v", cfg.Host)
	}
	if cfg.Storage.Dir != "/var/lib/offchaind" {
		t.Errorf("storage.dir = %q", cfg.Storage.Dir)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(cfg.Tasks))
	}
	if cfg.Tasks[0].Headers["Accept"] != "application/json" {
		t.Errorf("headers = %v", cfg.Tasks[0].Headers)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("host:\n  request_timeout: 5\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Tasks: []TaskConfig{{ID: "t1", URL: "https://example.com/x"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "negative timeout", mutate: func(c *Config) { c.Host.RequestTimeoutMs = -2 }, wantErr: "request_timeout_ms"},
		{name: "disabled timeout", mutate: func(c *Config) { c.Host.RequestTimeoutMs = -1 }},
		{name: "too many requests", mutate: func(c *Config) { c.Host.MaxRequests = 1<<16 + 1 }, wantErr: "max_requests"},
		{name: "dir and in_memory", mutate: func(c *Config) { c.Storage.Dir = "/tmp/x"; c.Storage.InMemory = true }, wantErr: "mutually exclusive"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: "unknown level"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unknown format"},
		{name: "missing id", mutate: func(c *Config) { c.Tasks[0].ID = "" }, wantErr: "id is required"},
		{name: "duplicate id", mutate: func(c *Config) { c.Tasks = append(c.Tasks, c.Tasks[0]) }, wantErr: "duplicate id"},
		{name: "relative url", mutate: func(c *Config) { c.Tasks[0].URL = "/price" }, wantErr: "absolute http(s)"},
		{name: "ftp url", mutate: func(c *Config) { c.Tasks[0].URL = "ftp://example.com/x" }, wantErr: "absolute http(s)"},
		{name: "submit without signer", mutate: func(c *Config) { c.Tasks[0].Submit = true }, wantErr: "seed_file"},
		{name: "submit with signer", mutate: func(c *Config) { c.Tasks[0].Submit = true; c.Signer.SeedFile = "seed.hex" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	cfg := &Config{Tasks: []TaskConfig{{ID: "t1", URL: "https://example.com"}}}
	if err := Validate(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Tasks[0].Method != "" || cfg.Log.Level != "" {
		t.Error("Validate mutated configuration")
	}
}

func TestNormalize(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	Normalize(cfg)

	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	price := cfg.Tasks[0]
	if price.Method != DefaultMethod {
		t.Errorf("method = %q, want %q", price.Method, DefaultMethod)
	}
	if price.StorageKey != "task:eth-price" {
		t.Errorf("storage_key = %q", price.StorageKey)
	}
	if price.IntervalMs != 30000 {
		t.Errorf("interval_ms overwritten: %d", price.IntervalMs)
	}
	if price.TimeoutMs != DefaultTimeoutMs || price.MaxBodySize != DefaultMaxBodySize {
		t.Errorf("defaults not applied: %+v", price)
	}
	if cfg.Tasks[1].Method != "POST" {
		t.Errorf("method not upper-cased: %q", cfg.Tasks[1].Method)
	}

	Normalize(nil)
}

func TestNormalizeLogDefaults(t *testing.T) {
	cfg := &Config{}
	Normalize(cfg)
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Storage.Dir != DefaultStorageDir {
		t.Errorf("storage.dir = %q, want %q", cfg.Storage.Dir, DefaultStorageDir)
	}

	mem := &Config{Storage: StorageConfig{InMemory: true}}
	Normalize(mem)
	if mem.Storage.Dir != "" {
		t.Errorf("in-memory storage got dir %q", mem.Storage.Dir)
	}
}
