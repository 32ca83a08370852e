// Command summarizer serves the keyphrase summarization API.
//
// It annotates transcripts, runs the competing summarizers against the
// configured document-frequency store, and commits transcripts into corpus
// and user scopes either in-process or through Kafka for the indexer.
//
// Usage:
//
//	go run ./cmd/summarizer [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/specificity"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer/handler"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/redis"
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
	slog.Info("starting summarizer service",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"annotator", cfg.Annotator.Backend,
	)

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
	slog.Info("frequency store ready", "backend", backend.Name)

	stopSet := stopwords.Default()
	if cfg.Stopwords.Path != "" {
		stopSet, err = stopwords.LoadFile(cfg.Stopwords.Path, true)
		if err != nil {
			slog.Error("failed to load stopwords", "path", cfg.Stopwords.Path, "error", err)
			os.Exit(1)
		}
		slog.Info("stopwords loaded", "path", cfg.Stopwords.Path, "words", len(stopSet))
	}

	checker := health.NewChecker()
	if backend.Ping != nil {
		checker.Register("store", health.PingCheck(backend.Ping, health.StatusDown))
	}

	var annotator annotation.Annotator
	switch cfg.Annotator.Backend {
	case "corenlp":
		client := annotation.NewCoreNLPClient(cfg.Annotator, m)
		checker.Register("corenlp", health.PingCheck(client.Ping, health.StatusDown))
		annotator = client
	default:
		annotator = annotation.NewProseAnnotator(cfg.Annotator.Stemmer)
	}

	var (
		specifier ranking.Specifier
		stats     handler.SpecificityStats
	)
	if cfg.Oracle.Enabled {
		var cache specificity.Cache
		redisClient, err := pkgredis.NewClient(cfg.Redis, specificity.Namespace)
		if err != nil {
			slog.Warn("redis unavailable, specificity counts cached in memory", "error", err)
			cache = specificity.NewMemoryCache()
			checker.Register("redis", health.PingCheck(nil, health.StatusDegraded))
		} else {
			defer redisClient.Close()
			cache = specificity.NewRedisCache(redisClient, cfg.Redis.CacheTTL)
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			slog.Info("specificity cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
		scorer := specificity.NewScorer(
			specificity.NewDBpediaClient(cfg.Oracle, m),
			cache,
			specificity.NewPacer(cfg.Oracle.Delay),
			cfg.Oracle.Saturation,
			m,
		)
		specifier = scorer
		stats = scorer
		slog.Info("specificity oracle enabled", "url", cfg.Oracle.URL, "delay", cfg.Oracle.Delay, "budget", cfg.Oracle.Budget)
	} else {
		slog.Warn("specificity oracle disabled, hybrid ranking uses tf-idf only")
	}

	ranker := ranking.NewRanker(scoring.NewScorer(backend.Store), specifier, ranking.Config{
		BlendWeight:         cfg.Ranking.BlendWeight,
		SimilarityThreshold: cfg.Ranking.SimilarityThreshold,
		EntityTypes:         cfg.Ranking.EntityTypes,
		OracleBudget:        cfg.Oracle.Budget,
		Stopwords:           stopSet,
	}, m)

	var committer corpus.Committer
	if cfg.Store.CommitVia == "kafka" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentCommit)
		defer producer.Close()
		committer = corpus.NewKafkaCommitter(producer)
		slog.Info("commits published to kafka", "topic", cfg.Kafka.Topics.DocumentCommit)
	} else {
		committer = corpus.NewStoreCommitter(backend.Store, m)
	}

	var tracker summarizer.Tracker
	if cfg.Analytics.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}

	svc := summarizer.New(summarizer.Deps{
		Annotator: annotator,
		Stopwords: stopSet,
		Store:     backend.Store,
		Ranker:    ranker,
		Committer: committer,
		Tracker:   tracker,
		Metrics:   m,
	}, summarizer.ConfigFrom(cfg))

	h := handler.New(svc, stats, cfg.Ranking.MaxTargetCount)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
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

	slog.Info("summarizer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("summarizer service stopped")
}
