package badgerstore

import (
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Default configuration values.
const (
	DefaultMaxValueSize    = 1 * 1024 * 1024  // 1MB
	DefaultGCInterval      = 5 * time.Minute  // Run value log GC every 5 minutes
	DefaultShutdownTimeout = 30 * time.Second // Max wait for graceful shutdown
)

// Options configures the Badger storage.
type Options struct {
	// Dir is the directory for Badger data files.
	// If empty, uses in-memory mode (for testing).
	Dir string

	// InMemory runs Badger in memory-only mode.
	InMemory bool

	// Logger for Badger. If nil, Badger output goes to SLogger, with its
	// info messages demoted to debug.
	Logger badger.Logger

	// SLogger is a structured logger for badgerstore operations.
	// If nil, uses slog.Default().
	SLogger *slog.Logger

	// MaxValueSize limits the size of individual values.
	// Default: 1MB. Set to 0 to use default.
	MaxValueSize int

	// GCInterval is how often to run Badger's value log GC.
	// Default: 5 minutes. Set to -1 to disable.
	GCInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for background goroutines
	// to finish during Close(). Default: 30 seconds. Set to 0 to use default.
	ShutdownTimeout time.Duration
}
