// Package badgerstore provides a Badger-backed local storage for the offchain host.
//
// Values survive restarts of the host process. The store is node-local and
// not part of consensus; nothing here replicates across hosts.
//
// For long-running processes keep GCInterval enabled (the default) or call
// RunGC periodically, since Badger does not reclaim value log space by itself.
// Single-process only: Badger uses file locking, but no additional fencing is
// performed.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// prefixLocal namespaces local storage keys inside the Badger keyspace.
const prefixLocal = "l:"

var (
	// ErrClosed is returned when operations are attempted on a closed storage.
	ErrClosed = errors.New("badgerstore: storage closed")

	// ErrValueTooLarge is returned when a value exceeds MaxValueSize.
	ErrValueTooLarge = errors.New("badgerstore: value too large")
)

// Storage is a Badger-backed key/value store.
type Storage struct {
	db *badger.DB

	maxValueSize    int
	shutdownTimeout time.Duration
	logger          *slog.Logger

	// Background goroutine control
	wg             sync.WaitGroup
	shutdownCtx    context.Context    // Cancelled on Close(), signals all background work to stop
	shutdownCancel context.CancelFunc // Called during Close()

	// Close protection - prevents double-close panic and rejects operations after close
	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a new Badger-backed storage.
func New(opts Options) (*Storage, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory || opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	logger := opts.SLogger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(slogAdapter{logger: logger})
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}

	maxValueSize := opts.MaxValueSize
	if maxValueSize <= 0 {
		maxValueSize = DefaultMaxValueSize
	}

	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	s := &Storage{
		db:              db,
		maxValueSize:    maxValueSize,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	gcInterval := opts.GCInterval
	if gcInterval == 0 {
		gcInterval = DefaultGCInterval
	}
	if gcInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runGCLoop(gcInterval)
		}()
	}

	return s, nil
}

// Close closes the Badger database and stops background goroutines.
// Waits up to ShutdownTimeout for background goroutines to finish gracefully.
// Close is safe to call multiple times - subsequent calls are no-ops.
func (s *Storage) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.shutdownCancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(s.shutdownTimeout):
			s.logger.Warn("badgerstore: shutdown timeout exceeded, proceeding with close",
				"timeout", s.shutdownTimeout)
		}

		closeErr = s.db.Close()
	})

	return closeErr
}

// checkClosed returns ErrClosed if the storage has been closed.
func (s *Storage) checkClosed() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// RunGC runs Badger's value log garbage collection.
// Call this periodically for long-running processes.
func (s *Storage) RunGC() error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	return s.db.RunValueLogGC(0.5)
}

// Set stores value under key, replacing any previous value.
func (s *Storage) Set(key, value []byte) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	if len(value) > s.maxValueSize {
		return fmt.Errorf("badgerstore: %d > %d bytes: %w", len(value), s.maxValueSize, ErrValueTooLarge)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(localKey(key), value)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: set: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *Storage) Get(key []byte) ([]byte, bool, error) {
	if err := s.checkClosed(); err != nil {
		return nil, false, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(localKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badgerstore: get: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// localKey namespaces key under prefixLocal. The prefix keeps empty keys
// valid for Badger.
func localKey(key []byte) []byte {
	k := make([]byte, 0, len(prefixLocal)+len(key))
	k = append(k, prefixLocal...)
	return append(k, key...)
}
