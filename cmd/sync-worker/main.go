package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harrypeter07/billsync/internal/localstore"
	"github.com/harrypeter07/billsync/internal/remote"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db"
	"github.com/harrypeter07/billsync/pkg/logger"
	"github.com/harrypeter07/billsync/pkg/metrics"
	"github.com/harrypeter07/billsync/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.LocalDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open local database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing local database", err)
		}
	}()

	if err := migrate.MaybeRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run migrations", err)
		os.Exit(1)
	}

	remoteStore, err := remote.Dial(cfg.Remote)
	if err != nil {
		logg.Error(context.Background(), "failed to dial remote store", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	reconciler, err := syncqueue.NewReconciler(syncqueue.ReconcilerParams{
		Logger:       logg,
		Repo:         syncqueue.NewRepository(dbClient.DB()),
		Local:        localstore.New(dbClient.DB()),
		Remote:       remoteStore,
		Metrics:      syncMetrics,
		BatchSize:    cfg.Sync.BatchSize,
		PollInterval: cfg.Sync.PollInterval(),
		MaxBackoff:   cfg.Sync.MaxBackoff,
		MaxRetries:   cfg.Sync.MaxRetries,
		OnWarning: func(w syncqueue.Warning) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"entity_type": w.Entry.EntityType,
				"entity_id":   w.Entry.EntityID,
				"action":      w.Entry.Action,
			})
			logg.Warn(ctx, "mutation permanently failed, manual review required")
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"batch_size":    cfg.Sync.BatchSize,
		"poll_interval": cfg.Sync.PollInterval().String(),
	})

	metricsServer := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := metricsServer.Close(); err != nil {
			logg.Error(ctx, "error closing metrics server", err)
		}
	}()

	logg.Info(ctx, "starting sync worker")
	if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sync worker shutting down gracefully")
}
