// Package host implements offchain.Externalities on top of real side effects:
// outbound HTTP via net/http, a LocalStorage backend, a transaction pool,
// an optional signer, the wall clock and the system entropy source.
//
// A Host is goroutine-safe. Many task contexts may share one Host; each HTTP
// request handle is owned by whoever started it.
package host

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahimsalabs/offchain-go/offchain"
	"github.com/ahimsalabs/offchain-go/storage/memorystore"
	"github.com/go4org/hashtriemap"
)

// Default configuration values.
const (
	DefaultRequestTimeout  = 30 * time.Second // Host-side bound until the response head arrives
	DefaultMaxRequests     = 1024             // Outstanding requests per host
	DefaultRetainResolved  = 5 * time.Minute  // Keep unread requests this long
	DefaultReapInterval    = 1 * time.Minute  // Scan for abandoned requests every minute
	DefaultShutdownTimeout = 30 * time.Second // Max wait for background goroutines on Close
)

// LocalStorage is the persistent key/value space behind LocalStorageSet and
// LocalStorageRead. Implementations must be goroutine-safe.
type LocalStorage interface {
	// Set stores value under key, replacing any previous value.
	Set(key, value []byte) error

	// Get returns the value stored under key. found is false if the key is absent.
	Get(key []byte) (value []byte, found bool, err error)
}

// TxPool receives transactions for propagation.
type TxPool interface {
	// Submit enqueues an encoded transaction. A non-nil error means it was rejected.
	Submit(tx []byte) error
}

// Signer signs data with the authority key of this host.
type Signer interface {
	Sign(data []byte) ([64]byte, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Host.
//
// # Zero Values
//
// Zero values are replaced with defaults:
//   - HTTPClient: http.DefaultClient
//   - Storage: a fresh in-memory store (not persisted)
//   - Pool: none, SubmitTransaction always fails
//   - Signer: none, Sign reports signing unavailable
//   - Clock: the system clock
//   - Entropy: crypto/rand.Reader
//   - Logger: slog.Default()
//   - RequestTimeout: DefaultRequestTimeout (-1 disables)
//   - MaxRequests: DefaultMaxRequests
//   - RetainResolved: DefaultRetainResolved
//   - ReapInterval: DefaultReapInterval (-1 disables)
//   - ShutdownTimeout: DefaultShutdownTimeout
type Options struct {
	HTTPClient *http.Client
	Storage    LocalStorage
	Pool       TxPool
	Signer     Signer
	Clock      Clock
	Entropy    io.Reader
	Logger     *slog.Logger

	// RequestTimeout bounds a single HTTP request from start until its
	// response head arrives. A request that exceeds it resolves as
	// StatusTimeout. Once the head is in, the timeout no longer applies and
	// the body stays readable until it is drained or RetainResolved reaps it.
	RequestTimeout time.Duration

	// MaxRequests limits how many requests may be outstanding at once.
	// HTTPRequestStart fails beyond this limit.
	MaxRequests int

	// RetainResolved is how long a resolved request is kept after the last
	// wait, headers or body read on it (or after it started, if it never
	// dispatched) before the reaper releases it.
	RetainResolved time.Duration

	// ReapInterval is how often to scan for abandoned requests.
	ReapInterval time.Duration

	// ShutdownTimeout is the maximum time Close waits for in-flight
	// exchanges and background goroutines.
	ShutdownTimeout time.Duration
}

// Host implements offchain.Externalities.
type Host struct {
	client  *http.Client
	storage LocalStorage
	pool    TxPool
	signer  Signer
	clock   Clock
	entropy io.Reader
	logger  *slog.Logger

	requestTimeout  time.Duration
	maxRequests     int
	retainResolved  time.Duration
	shutdownTimeout time.Duration

	// Outstanding requests. Stores and deletes happen under idMu so that id
	// allocation and the live count stay consistent; lookups are lock-free.
	requests hashtriemap.HashTrieMap[offchain.HTTPRequestID, *request]
	idMu     sync.Mutex
	nextID   uint16
	live     int

	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	closeOnce      sync.Once
	closed         atomic.Bool
}

var _ offchain.Externalities = (*Host)(nil)

// New creates a Host. Call Close to stop background work and abort
// outstanding requests.
func New(opts Options) *Host {
	h := &Host{
		client:          opts.HTTPClient,
		storage:         opts.Storage,
		pool:            opts.Pool,
		signer:          opts.Signer,
		clock:           opts.Clock,
		entropy:         opts.Entropy,
		logger:          opts.Logger,
		requestTimeout:  opts.RequestTimeout,
		maxRequests:     opts.MaxRequests,
		retainResolved:  opts.RetainResolved,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if h.client == nil {
		h.client = http.DefaultClient
	}
	if h.storage == nil {
		h.storage = memorystore.New()
	}
	if h.clock == nil {
		h.clock = systemClock{}
	}
	if h.entropy == nil {
		h.entropy = rand.Reader
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.requestTimeout == 0 {
		h.requestTimeout = DefaultRequestTimeout
	}
	if h.maxRequests <= 0 {
		h.maxRequests = DefaultMaxRequests
	}
	if h.retainResolved <= 0 {
		h.retainResolved = DefaultRetainResolved
	}
	if h.shutdownTimeout <= 0 {
		h.shutdownTimeout = DefaultShutdownTimeout
	}

	h.shutdownCtx, h.shutdownCancel = context.WithCancel(context.Background())

	reapInterval := opts.ReapInterval
	if reapInterval == 0 {
		reapInterval = DefaultReapInterval
	}
	if reapInterval > 0 {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.runReapLoop(reapInterval)
		}()
	}

	return h
}

// Close aborts outstanding requests, wakes blocked callers and stops
// background goroutines. It waits up to ShutdownTimeout for them to finish.
// Close is safe to call multiple times.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.shutdownCancel()

		done := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(h.shutdownTimeout):
			h.logger.Warn("host: shutdown timeout exceeded, proceeding with close",
				"timeout", h.shutdownTimeout)
		}
	})
	return nil
}

// Outstanding returns the number of requests the host currently tracks.
func (h *Host) Outstanding() int {
	h.idMu.Lock()
	defer h.idMu.Unlock()
	return h.live
}

// SubmitTransaction implements offchain.Externalities.
func (h *Host) SubmitTransaction(tx []byte) error {
	if h.pool == nil {
		h.logger.Debug("host: submit rejected, no pool configured")
		return offchain.ErrFail
	}
	if err := h.pool.Submit(tx); err != nil {
		h.logger.Debug("host: submit rejected", "size", len(tx), "error", err)
		return offchain.ErrFail
	}
	return nil
}

// Sign implements offchain.Externalities.
func (h *Host) Sign(data []byte) ([64]byte, bool) {
	if h.signer == nil {
		return [64]byte{}, false
	}
	sig, err := h.signer.Sign(data)
	if err != nil {
		h.logger.Warn("host: sign failed", "error", err)
		return [64]byte{}, false
	}
	return sig, true
}

// Timestamp implements offchain.Externalities.
func (h *Host) Timestamp() offchain.Timestamp {
	return h.now()
}

func (h *Host) now() offchain.Timestamp {
	return offchain.TimestampFromTime(h.clock.Now())
}

// SleepUntil implements offchain.Externalities.
// It also returns early when the host is closed.
func (h *Host) SleepUntil(deadline offchain.Timestamp) {
	wait, _ := offchain.Remaining(&deadline, h.now())
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-h.shutdownCtx.Done():
	}
}

// RandomSeed implements offchain.Externalities.
// It panics if the entropy source fails, since no meaningful seed can be produced.
func (h *Host) RandomSeed() [32]byte {
	var seed [32]byte
	if _, err := io.ReadFull(h.entropy, seed[:]); err != nil {
		panic("host: read entropy: " + err.Error())
	}
	return seed
}

// LocalStorageSet implements offchain.Externalities.
// Storage errors are logged; the contract has no failure channel for writes.
func (h *Host) LocalStorageSet(key, value []byte) {
	if err := h.storage.Set(key, value); err != nil {
		h.logger.Error("host: local storage set failed", "key", string(key), "error", err)
	}
}

// LocalStorageRead implements offchain.Externalities.
// Storage errors are logged and reported as an absent value.
func (h *Host) LocalStorageRead(key []byte) ([]byte, bool) {
	value, found, err := h.storage.Get(key)
	if err != nil {
		h.logger.Error("host: local storage read failed", "key", string(key), "error", err)
		return nil, false
	}
	return value, found
}
