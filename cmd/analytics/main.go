// Command analytics starts the standalone analytics aggregation service.
//
// It consumes summarizer analytics events from Kafka, aggregates them in
// memory (summary counts, latency percentiles, per-strategy ROUGE, top
// keyphrases and corpora), optionally snapshots the aggregate to PostgreSQL
// or SQLite, and exposes GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/sqlite"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator(nil)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	agg.SetConsumer(consumer)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		stats := consumer.Stats()
		msg := fmt.Sprintf("processed=%d failed=%d fetch_errors=%d", stats.Processed, stats.Failed, stats.FetchErrors)
		if stats.FetchErrors > 0 && stats.Processed == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: msg}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: msg}
	})

	mux := http.NewServeMux()

	var snapshots *aggregator.Store
	switch cfg.Analytics.SnapshotBackend {
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		snapshots = aggregator.NewPostgresStore(client)
		checker.Register("postgres", health.PingCheck(client.Ping, health.StatusDegraded))
	case "sqlite":
		client, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			slog.Error("failed to open sqlite", "path", cfg.SQLite.Path, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		snapshots = aggregator.NewSQLiteStore(client)
		checker.Register("sqlite", health.PingCheck(client.Ping, health.StatusDegraded))
	}
	if snapshots != nil {
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create snapshot schema", "error", err)
			os.Exit(1)
		}
		snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		mux.HandleFunc("GET /api/v1/analytics/snapshots", snapshots.ServeSnapshots)
	}

	analyticsHandler := analytics.NewHandler(agg)
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
