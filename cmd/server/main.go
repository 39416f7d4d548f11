// Package main is the entry point for the procurement API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"procura/internal/config"
	corelock "procura/internal/core/lock"
	"procura/internal/domain/auth"
	"procura/internal/domain/documents/goods_receipt"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/domain/registers/stock"
	v1 "procura/internal/infrastructure/http/v1"
	"procura/internal/infrastructure/http/v1/handlers"
	"procura/internal/infrastructure/http/v1/middleware"
	"procura/internal/infrastructure/lock"
	"procura/internal/infrastructure/numerator"
	"procura/internal/infrastructure/storage/postgres"
	"procura/internal/infrastructure/storage/postgres/catalog_repo"
	"procura/internal/infrastructure/storage/postgres/document_repo"
	"procura/internal/infrastructure/storage/postgres/register_repo"
	"procura/pkg/logger"
)

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

	if err := run(cfg, log); err != nil {
		log.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting procura server", "env", cfg.AppEnv)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	txManager := postgres.NewTxManager(pool)

	health := map[string]handlers.Pinger{"postgres": pool}

	// --- Per-PO lock ---
	var locker corelock.Locker = corelock.NewKeyedMutex()
	if cfg.LockBackend == config.LockBackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisLocker(rdb, lock.WithTTL(cfg.LockTTL), lock.WithWait(cfg.LockWait))
		health["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	log.Infow("per-order lock configured", "backend", cfg.LockBackend)

	// --- Infrastructure services ---
	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	outbox := postgres.NewOutboxPublisher(txManager)
	numbers := numerator.New(txManager)

	// --- Domain services ---
	orders := purchase_order.NewService(purchase_order.Config{
		Repo:      document_repo.NewPurchaseOrderRepo(txManager),
		Catalogs:  catalog_repo.NewLookup(txManager),
		Numerator: numbers,
		TxManager: txManager,
		Locker:    locker,
		Audit:     auditStore,
		Events:    outbox,
	})
	receipts := goods_receipt.NewService(goods_receipt.Config{
		Orders:    orders,
		Repo:      document_repo.NewGoodsReceiptRepo(txManager),
		Ledger:    stock.NewService(register_repo.NewStockRepo(txManager)),
		Numerator: numbers,
		Audit:     auditStore,
		Events:    outbox,
	})

	// --- JWT ---
	jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtCfg.Issuer = cfg.JWTIssuer

	var idempotency middleware.IdempotencyStore
	if cfg.IdempotencyEnabled {
		idempotency = postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)
	}

	// --- Router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterConfig{
		Logger:        log,
		JWTValidator:  auth.NewJWTService(jwtCfg),
		Idempotency:   idempotency,
		ApproverRoles: cfg.ApproverRoles,
		Orders:        orders,
		Receipts:      receipts,
		HealthChecks:  health,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	// --- Graceful shutdown ---
	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
