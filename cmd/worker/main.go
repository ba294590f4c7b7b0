// Package main is the worker entry point. It assembles the core, starts the
// worker pool, and exposes Prometheus metrics for scraping.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/embeddings"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/extractor"
	"github.com/fairyhunter13/talent-matcher/internal/adapter/store"
	"github.com/fairyhunter13/talent-matcher/internal/app"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	// The worker binary ships with the in-memory store and offline adapters;
	// deployments with real persistence build their own entry point against
	// internal/app.
	deps := app.Deps{
		Store:     store.NewMemory(),
		Extractor: extractor.NewPlainText(),
	}
	if cfg.EmbeddingsEnabled {
		deps.Embeddings = embeddings.New(0)
	}

	core, err := app.New(cfg, deps)
	if err != nil {
		slog.Error("core assembly failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer core.Queue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting worker",
		slog.String("env", cfg.AppEnv),
		slog.Int("pool_size", cfg.WorkerPoolSize),
		slog.Any("priorities", cfg.WorkerPriorities))

	core.Pool.Run(ctx)
	slog.Info("worker stopped")
}
