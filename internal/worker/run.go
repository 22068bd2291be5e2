package worker

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/ahimsalabs/offchain-go/offchain"
)

// ErrNoTasks is returned by Run when there is nothing to schedule.
var ErrNoTasks = errors.New("worker: no tasks")

// Options configures Run.
type Options struct {
	// Logger for task outcomes. If nil, uses slog.Default().
	Logger *slog.Logger

	// MaxJitter spreads the first run of each task over [0, MaxJitter),
	// derived from the host random seed. Zero runs every new task immediately.
	MaxJitter offchain.Duration

	// OnResult, if set, is called after every successful fetch.
	OnResult func(*Result)
}

// Run executes tasks on their intervals until ctx is cancelled.
//
// A task that fetched before (per LastFetched) resumes at its last fetch plus
// its interval. Run sleeps through ext.SleepUntil, so the host must wake
// sleepers on shutdown for cancellation to take effect promptly.
func Run(ctx context.Context, ext offchain.Externalities, tasks []Task, opts Options) error {
	if len(tasks) == 0 {
		return ErrNoTasks
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := ext.Timestamp()
	seed := ext.RandomSeed()
	next := make([]offchain.Timestamp, len(tasks))
	for i, task := range tasks {
		if last, ok := LastFetched(ext, task); ok {
			next[i] = max(last.Add(task.Interval), now)
			continue
		}
		next[i] = now.Add(jitter(seed, i, opts.MaxJitter))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		due := 0
		for i := range next {
			if next[i].Before(next[due]) {
				due = i
			}
		}

		ext.SleepUntil(next[due])
		if err := ctx.Err(); err != nil {
			return err
		}
		if ext.Timestamp().Before(next[due]) {
			// Woken early; recompute.
			continue
		}

		task := tasks[due]
		res, err := Fetch(ext, task)
		if err != nil {
			logger.Warn("worker: task failed", "task", task.ID, "error", err)
		} else {
			logger.Info("worker: task fetched",
				"task", task.ID, "status", offchain.HTTPRequestStatus(res.Record.Status),
				"size", len(res.Record.Body), "signed", res.Signed)
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
		}
		next[due] = ext.Timestamp().Add(task.Interval)
	}
}

// jitter derives a per-task offset in [0, limit) from seed.
func jitter(seed [32]byte, i int, limit offchain.Duration) offchain.Duration {
	if limit == 0 {
		return 0
	}
	off := (i * 8) % (len(seed) - 7)
	v := binary.LittleEndian.Uint64(seed[off : off+8])
	return offchain.Duration(v % uint64(limit))
}
