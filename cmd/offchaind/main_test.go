package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ahimsalabs/offchain-go/internal/config"
	"github.com/ahimsalabs/offchain-go/storage/badgerstore"
	"github.com/ahimsalabs/offchain-go/storage/memorystore"
)

func TestMillis(t *testing.T) {
	tests := []struct {
		in   int
		want time.Duration
	}{
		{in: -1, want: -1},
		{in: 0, want: 0},
		{in: 1500, want: 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := millis(tt.in); got != tt.want {
			t.Errorf("millis(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTasks(t *testing.T) {
	got := tasks([]config.TaskConfig{{
		ID:          "price",
		Method:      "GET",
		URL:         "https://example.com",
		Body:        "q",
		StorageKey:  "task:price",
		IntervalMs:  30000,
		TimeoutMs:   5000,
		MaxBodySize: 10,
		Submit:      true,
	}})
	if len(got) != 1 {
		t.Fatalf("got %d tasks", len(got))
	}
	task := got[0]
	if string(task.StorageKey) != "task:price" || string(task.Body) != "q" {
		t.Errorf("task = %+v", task)
	}
	if task.Interval.Millis() != 30000 || task.Timeout.Millis() != 5000 {
		t.Errorf("interval/timeout = %d/%d", task.Interval, task.Timeout)
	}
	if !task.Submit || task.MaxBodySize != 10 {
		t.Errorf("task = %+v", task)
	}
}

func TestNewLogger(t *testing.T) {
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	logger = newLogger(config.LogConfig{Level: "bogus", Format: "text"})
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("unknown level should fall back to info")
	}
}

func TestOpenStorage(t *testing.T) {
	s, closeFn, err := openStorage(config.StorageConfig{InMemory: true}, nil)
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	if _, ok := s.(*memorystore.Store); !ok {
		t.Errorf("in_memory storage is %T", s)
	}
	closeFn()

	s, closeFn, err = openStorage(config.StorageConfig{Dir: t.TempDir(), GCIntervalMs: -1}, quietSLog())
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*badgerstore.Storage); !ok {
		t.Errorf("dir storage is %T", s)
	}
	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Errorf("Set: %v", err)
	}
}

func quietSLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
