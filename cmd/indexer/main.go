// Command indexer applies document commits published by the summarizer to
// the shared document-frequency store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/corpus/consumer"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
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
	slog.Info("starting indexer service", "store", cfg.Store.Backend)
	if cfg.Store.Backend == "memory" {
		slog.Warn("indexer writing to an in-memory store; commits are not visible to the summarizer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

	backend, err := frequency.OpenBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open frequency store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	committer := corpus.NewStoreCommitter(backend.Store, m)
	handler := consumer.HandleMessage(committer, resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	})
	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentCommit,
		handler,
	)

	commitConsumer := consumer.New(kafkaConsumer)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentCommit,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := commitConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
