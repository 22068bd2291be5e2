package badgerstore

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// runGCLoop runs Badger's value log garbage collection periodically.
func (s *Storage) runGCLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownCtx.Done():
			return
		case <-ticker.C:
			s.runGC()
		}
	}
}

// runGC performs one round of garbage collection with shutdown checks.
// One RunValueLogGC call rewrites at most one log file, so loop a bounded
// number of times until there is nothing left to rewrite.
func (s *Storage) runGC() {
	const maxGCIterations = 10
	for i := 0; i < maxGCIterations; i++ {
		select {
		case <-s.shutdownCtx.Done():
			return
		default:
		}

		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return
		}
		if err != nil {
			s.logger.Warn("badgerstore: GC error", "error", err)
			return
		}
	}
}
