// Package main is the entry point for the procurement background worker:
// it relays the transactional outbox into asynq and runs the task handlers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"procura/internal/config"
	"procura/internal/infrastructure/jobs"
	"procura/internal/infrastructure/storage/postgres"
	"procura/pkg/logger"
)

const idempotencyCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log.WithComponent("worker")); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting procura worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.ApplicationName = "procura-worker"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	txManager := postgres.NewTxManager(pool)

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	client := asynq.NewClient(redisOpts)
	defer func() { _ = client.Close() }()

	relay := postgres.NewOutboxRelay(txManager, cfg.OutboxBatchSize, jobs.NewForwarder(client))
	worker := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Concurrency: cfg.WorkerConcurrency,
		Logger:      log,
	})
	idempotency := postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(ctx, cfg.OutboxPollInterval)
	})
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(idempotencyCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := idempotency.CleanupExpired(ctx)
				if err != nil {
					log.Warnw("idempotency cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					log.Infow("cleaned up idempotency keys", "count", n)
				}
			}
		}
	})

	err = g.Wait()
	log.Info("worker stopped")
	return err
}
