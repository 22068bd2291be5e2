// Package txpool provides a bounded FIFO pool for transactions submitted by
// offchain tasks.
//
// The pool deduplicates by SHA-256 of the payload while a transaction is
// pending. Consumers drain it with Pop or Drain; the pool never inspects the
// payload beyond its size.
package txpool

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eapache/queue"
)

// Default configuration values.
const (
	DefaultCapacity  = 4096
	DefaultMaxTxSize = 64 * 1024 // 64KB
)

var (
	// ErrEmptyTx is returned when submitting a zero-length transaction.
	ErrEmptyTx = errors.New("txpool: transaction is empty")

	// ErrTooLarge is returned when a transaction exceeds MaxTxSize.
	ErrTooLarge = errors.New("txpool: transaction too large")

	// ErrFull is returned when the pool holds Capacity pending transactions.
	ErrFull = errors.New("txpool: pool full")

	// ErrDuplicate is returned when an identical transaction is already pending.
	ErrDuplicate = errors.New("txpool: duplicate transaction")
)

// Options configures a Pool.
type Options struct {
	// Capacity is the maximum number of pending transactions.
	// Default: 4096. Set to 0 to use default.
	Capacity int

	// MaxTxSize limits the size of a single transaction.
	// Default: 64KB. Set to 0 to use default.
	MaxTxSize int

	// Logger for pool events. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Pool is a bounded, deduplicating FIFO of transactions.
// Safe for concurrent use.
type Pool struct {
	capacity  int
	maxTxSize int
	logger    *slog.Logger

	mu      sync.Mutex
	pending *queue.Queue
	hashes  map[[sha256.Size]byte]struct{}
}

// New creates an empty Pool.
func New(opts Options) *Pool {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	maxTxSize := opts.MaxTxSize
	if maxTxSize <= 0 {
		maxTxSize = DefaultMaxTxSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		capacity:  capacity,
		maxTxSize: maxTxSize,
		logger:    logger,
		pending:   queue.New(),
		hashes:    make(map[[sha256.Size]byte]struct{}),
	}
}

// Submit appends a copy of tx to the pool.
func (p *Pool) Submit(tx []byte) error {
	if len(tx) == 0 {
		return ErrEmptyTx
	}
	if len(tx) > p.maxTxSize {
		return fmt.Errorf("txpool: submit: %d > %d bytes: %w", len(tx), p.maxTxSize, ErrTooLarge)
	}
	sum := sha256.Sum256(tx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.hashes[sum]; ok {
		return ErrDuplicate
	}
	if p.pending.Length() >= p.capacity {
		return ErrFull
	}

	buf := make([]byte, len(tx))
	copy(buf, tx)
	p.pending.Add(buf)
	p.hashes[sum] = struct{}{}

	p.logger.Debug("txpool: accepted", "size", len(tx), "pending", p.pending.Length())
	return nil
}

// Pop removes and returns the oldest pending transaction.
func (p *Pool) Pop() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending.Length() == 0 {
		return nil, false
	}
	tx := p.pending.Remove().([]byte)
	delete(p.hashes, sha256.Sum256(tx))
	return tx, true
}

// Peek returns the oldest pending transaction without removing it.
func (p *Pool) Peek() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending.Length() == 0 {
		return nil, false
	}
	tx := p.pending.Peek().([]byte)
	out := make([]byte, len(tx))
	copy(out, tx)
	return out, true
}

// Pending returns the number of pending transactions.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Length()
}

// Drain removes and returns all pending transactions in submission order.
func (p *Pool) Drain() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.pending.Length()
	if n == 0 {
		return nil
	}
	out := make([][]byte, 0, n)
	for p.pending.Length() > 0 {
		out = append(out, p.pending.Remove().([]byte))
	}
	clear(p.hashes)
	return out
}
