// Command offchaind runs configured fetch tasks against an offchain host.
//
// Usage:
//
//	offchaind -config offchaind.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahimsalabs/offchain-go/host"
	"github.com/ahimsalabs/offchain-go/internal/config"
	"github.com/ahimsalabs/offchain-go/internal/worker"
	"github.com/ahimsalabs/offchain-go/offchain"
	"github.com/ahimsalabs/offchain-go/storage/badgerstore"
	"github.com/ahimsalabs/offchain-go/storage/memorystore"
	"github.com/ahimsalabs/offchain-go/txpool"
)

func main() {
	configPath := flag.String("config", "offchaind.yaml", "path to YAML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "offchaind: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	storage, closeStorage, err := openStorage(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	pool := txpool.New(txpool.Options{
		Capacity:  cfg.Pool.Capacity,
		MaxTxSize: cfg.Pool.MaxTxSize,
		Logger:    logger,
	})

	opts := host.Options{
		Storage:        storage,
		Pool:           pool,
		Logger:         logger,
		RequestTimeout: millis(cfg.Host.RequestTimeoutMs),
		MaxRequests:    cfg.Host.MaxRequests,
		RetainResolved: millis(cfg.Host.RetainResolvedMs),
		ReapInterval:   millis(cfg.Host.ReapIntervalMs),
	}
	if cfg.Signer.SeedFile != "" {
		signer, err := host.LoadEd25519Signer(cfg.Signer.SeedFile)
		if err != nil {
			return err
		}
		opts.Signer = signer
		logger.Info("signer loaded", "public_key", fmt.Sprintf("%x", signer.PublicKey()))
	}

	h := host.New(opts)
	defer h.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closing the host wakes a worker blocked in SleepUntil.
	go func() {
		<-ctx.Done()
		h.Close()
	}()

	ext := offchain.Box(offchain.WithLogging(logger)(h))

	logger.Info("offchaind started", "tasks", len(cfg.Tasks))
	err = worker.Run(ctx, ext, tasks(cfg.Tasks), worker.Options{
		Logger:    logger,
		MaxJitter: offchain.DurationFromMillis(uint64(config.DefaultIntervalMs)),
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("offchaind stopped", "pending_transactions", pool.Pending())
		return nil
	}
	return err
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

func openStorage(cfg config.StorageConfig, logger *slog.Logger) (host.LocalStorage, func(), error) {
	if cfg.InMemory {
		s := memorystore.New()
		return s, func() { s.Close() }, nil
	}
	s, err := badgerstore.New(badgerstore.Options{
		Dir:          cfg.Dir,
		SLogger:      logger,
		MaxValueSize: cfg.MaxValueSize,
		GCInterval:   millis(cfg.GCIntervalMs),
	})
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			logger.Error("close storage", "error", err)
		}
	}, nil
}

func tasks(cfgs []config.TaskConfig) []worker.Task {
	out := make([]worker.Task, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, worker.Task{
			ID:          c.ID,
			Method:      c.Method,
			URL:         c.URL,
			Headers:     c.Headers,
			Body:        []byte(c.Body),
			StorageKey:  []byte(c.StorageKey),
			Interval:    offchain.DurationFromMillis(uint64(c.IntervalMs)),
			Timeout:     offchain.DurationFromMillis(uint64(c.TimeoutMs)),
			MaxBodySize: c.MaxBodySize,
			Submit:      c.Submit,
		})
	}
	return out
}

// millis converts a config value in milliseconds, keeping -1 as the
// "disabled" marker understood by Options structs.
func millis(ms int) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}
