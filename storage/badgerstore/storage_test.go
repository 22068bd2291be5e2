package badgerstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// quietLogger suppresses all Badger output during tests.
type quietLogger struct{}

func (l *quietLogger) Errorf(string, ...interface{})   {}
func (l *quietLogger) Warningf(string, ...interface{}) {}
func (l *quietLogger) Infof(string, ...interface{})    {}
func (l *quietLogger) Debugf(string, ...interface{})   {}

// quietSLog returns a silent slog.Logger for tests.
func quietSLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStorage creates an in-memory storage for testing with background
// goroutines disabled for deterministic behavior.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(Options{
		InMemory:   true,
		Logger:     &quietLogger{},
		SLogger:    quietSLog(),
		GCInterval: -1, // Disable background GC
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close storage: %v", err)
		}
	})
	return s
}

func TestNew(t *testing.T) {
	t.Run("creates in-memory storage", func(t *testing.T) {
		s, err := New(Options{InMemory: true, Logger: &quietLogger{}, GCInterval: -1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()
		if s == nil {
			t.Fatal("New() returned nil")
		}
	})

	t.Run("creates storage with directory", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(Options{Dir: dir, Logger: &quietLogger{}, GCInterval: -1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()
	})

	t.Run("uses default max value size", func(t *testing.T) {
		s := newTestStorage(t)
		if s.maxValueSize != DefaultMaxValueSize {
			t.Errorf("expected default max value size %d, got %d", DefaultMaxValueSize, s.maxValueSize)
		}
	})

	t.Run("uses custom max value size", func(t *testing.T) {
		s, err := New(Options{InMemory: true, Logger: &quietLogger{}, MaxValueSize: 16, GCInterval: -1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer s.Close()
		if s.maxValueSize != 16 {
			t.Errorf("expected max value size 16, got %d", s.maxValueSize)
		}
	})
}

func TestSetGet(t *testing.T) {
	t.Run("reads back what was set", func(t *testing.T) {
		s := newTestStorage(t)
		if err := s.Set([]byte("price"), []byte("42")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, found, err := s.Get([]byte("price"))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !found {
			t.Fatal("expected key to be found")
		}
		if string(got) != "42" {
			t.Errorf("got %q, want %q", got, "42")
		}
	})

	t.Run("missing key is not found", func(t *testing.T) {
		s := newTestStorage(t)
		got, found, err := s.Get([]byte("missing"))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if found || got != nil {
			t.Errorf("expected absent value, got %q found=%v", got, found)
		}
	})

	t.Run("overwrites previous value", func(t *testing.T) {
		s := newTestStorage(t)
		_ = s.Set([]byte("k"), []byte("v1"))
		_ = s.Set([]byte("k"), []byte("v2"))
		got, _, _ := s.Get([]byte("k"))
		if string(got) != "v2" {
			t.Errorf("got %q, want v2", got)
		}
	})

	t.Run("empty value is found", func(t *testing.T) {
		s := newTestStorage(t)
		if err := s.Set([]byte("k"), nil); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, found, err := s.Get([]byte("k"))
		if err != nil || !found {
			t.Fatalf("expected found, err=%v found=%v", err, found)
		}
		if len(got) != 0 {
			t.Errorf("expected empty value, got %q", got)
		}
	})

	t.Run("empty key round trips", func(t *testing.T) {
		s := newTestStorage(t)
		if err := s.Set(nil, []byte("v")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, found, err := s.Get([]byte{})
		if err != nil || !found {
			t.Fatalf("expected found, err=%v found=%v", err, found)
		}
		if string(got) != "v" {
			t.Errorf("got %q, want v", got)
		}
	})

	t.Run("value too large rejected", func(t *testing.T) {
		s, err := New(Options{InMemory: true, Logger: &quietLogger{}, SLogger: quietSLog(), MaxValueSize: 4, GCInterval: -1})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer s.Close()
		if err := s.Set([]byte("k"), []byte("12345")); !errors.Is(err, ErrValueTooLarge) {
			t.Errorf("expected ErrValueTooLarge, got %v", err)
		}
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		s := newTestStorage(t)
		_ = s.Set([]byte("k"), []byte("abc"))
		got, _, _ := s.Get([]byte("k"))
		got[0] = 'X'
		again, _, _ := s.Get([]byte("k"))
		if string(again) != "abc" {
			t.Errorf("stored value mutated: %q", again)
		}
	})
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(Options{Dir: dir, Logger: &quietLogger{}, SLogger: quietSLog(), GCInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s1.Set([]byte("k"), []byte("persisted")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := New(Options{Dir: dir, Logger: &quietLogger{}, SLogger: quietSLog(), GCInterval: -1})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, found, err := s2.Get([]byte("k"))
	if err != nil || !found {
		t.Fatalf("expected persisted value, err=%v found=%v", err, found)
	}
	if string(got) != "persisted" {
		t.Errorf("got %q, want %q", got, "persisted")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStorage(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []byte(fmt.Sprintf("key-%02d", i))
			if err := s.Set(key, key); err != nil {
				t.Errorf("Set: %v", err)
				return
			}
			got, found, err := s.Get(key)
			if err != nil || !found || !bytes.Equal(got, key) {
				t.Errorf("Get(%s) = %q, %v, %v", key, got, found, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("key-%02d", i))
		if _, found, err := s.Get(key); err != nil || !found {
			t.Errorf("Get(%s): found=%v err=%v", key, found, err)
		}
	}
}

func TestDoubleClose(t *testing.T) {
	s, err := New(Options{InMemory: true, Logger: &quietLogger{}, GCInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	s, err := New(Options{InMemory: true, Logger: &quietLogger{}, GCInterval: -1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Close()

	if err := s.Set([]byte("k"), []byte("v")); !errors.Is(err, ErrClosed) {
		t.Errorf("Set: expected ErrClosed, got %v", err)
	}
	if _, _, err := s.Get([]byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("Get: expected ErrClosed, got %v", err)
	}
	if err := s.RunGC(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunGC: expected ErrClosed, got %v", err)
	}
}

func TestBackgroundGCStopsOnClose(t *testing.T) {
	s, err := New(Options{
		InMemory:        true,
		Logger:          &quietLogger{},
		SLogger:         quietSLog(),
		GCInterval:      10 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a := slogAdapter{logger: logger}

	a.Infof("replaying %d entries\n", 3)
	a.Debugf("noise")
	if buf.Len() != 0 {
		t.Errorf("info/debug should log below warn, got %q", buf.String())
	}

	a.Warningf("value log %s is large\n", "000001.vlog")
	out := buf.String()
	if !strings.Contains(out, "badger: value log 000001.vlog is large") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, `\n`) {
		t.Errorf("trailing newline not trimmed: %q", out)
	}
}
