package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixelflow-labs/pixelflow-go/internal/execution/executor/nodes"
	"github.com/pixelflow-labs/pixelflow-go/internal/execution/orchestrator"
	"github.com/pixelflow-labs/pixelflow-go/internal/platform/env"
	"github.com/pixelflow-labs/pixelflow-go/internal/platform/httpserver"
	platformstore "github.com/pixelflow-labs/pixelflow-go/internal/platform/objectstore"
	"github.com/pixelflow-labs/pixelflow-go/internal/platform/postgres"
	"github.com/pixelflow-labs/pixelflow-go/internal/queue"
	repopg "github.com/pixelflow-labs/pixelflow-go/internal/repo/postgres"
	"github.com/pixelflow-labs/pixelflow-go/internal/storage/objectstore"
)

const service = "pixelflow-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("PIXELFLOW_HTTP_ADDR", ":8090")
	shutdownTimeout, err := env.Duration("PIXELFLOW_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	queueBuffer, err := env.Int("PIXELFLOW_QUEUE_BUFFER", 64)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var store objectstore.Store
	storeCfg, err := platformstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	ensureBucket, err := env.Bool("PIXELFLOW_MINIO_ENSURE_BUCKET", true)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	minioClient, err := platformstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	minioStore, err := objectstore.NewMinioStoreWithClient(minioClient, storeCfg.Bucket)
	if err != nil {
		logger.Error("object store init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if ensureBucket {
		if err := platformstore.EnsureBucket(startupCtx, minioClient, storeCfg); err != nil {
			logger.Warn("ensure bucket failed", "error", err, "bucket", storeCfg.Bucket)
		}
	}
	storeErr := minioStore.Available(startupCtx)
	cancel()
	if storeErr == nil {
		store = minioStore
	} else {
		// Degradation policy: the fallback is chosen here, visibly,
		// never inside the store.
		fallbackRoot := env.String("PIXELFLOW_FALLBACK_STORE_DIR", "")
		if fallbackRoot == "" {
			logger.Error("object store unavailable and no fallback configured", "error", storeErr)
			os.Exit(1)
		}
		fsStore, err := objectstore.NewFSStore(fallbackRoot)
		if err != nil {
			logger.Error("fallback store init failed", "error", err)
			os.Exit(1)
		}
		logger.Warn("object store unavailable, using filesystem fallback", "error", storeErr, "root", fallbackRoot)
		store = fsStore
	}

	runs := repopg.NewRunStore(db)
	graphs := repopg.NewGraphStore(db)
	artifacts := repopg.NewArtifactStore(db)
	cache := repopg.NewCacheStore(db)

	orch := orchestrator.New(runs, graphs, artifacts, cache, store, nodes.Default(), logger)
	if orch == nil {
		logger.Error("orchestrator init failed")
		os.Exit(2)
	}

	jobs := queue.NewMemory(queueBuffer)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(service))
	mux.HandleFunc("/readyz", httpserver.ReadyzWithChecks(service,
		httpserver.ReadinessCheck{Name: "database", Check: db.PingContext},
		httpserver.ReadinessCheck{Name: "object-store", Check: store.Available},
	))

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpserver.Run(ctx, logger, httpserver.Config{
			Service:         service,
			Addr:            addr,
			ShutdownTimeout: shutdownTimeout,
		}, httpserver.Wrap(logger, service, mux))
	}()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- jobs.Consume(ctx, orch.Execute)
	}()

	select {
	case err := <-httpErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("queue consumer failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}
	logger.Info("worker stopped")
}
