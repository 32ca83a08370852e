// Package metrics defines the Prometheus metric collectors used across the
// summarizer and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	SummariesTotal        *prometheus.CounterVec
	SummaryLatency        *prometheus.HistogramVec
	KeyphrasesReturned    prometheus.Histogram
	OracleLookupsTotal    *prometheus.CounterVec
	SpecificityCacheHits  prometheus.Counter
	SpecificityCacheMiss  prometheus.Counter
	DocsCommittedTotal    *prometheus.CounterVec
	StoreWritesTotal      *prometheus.CounterVec
	TopicFitDuration      prometheus.Histogram
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SummariesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summaries_total",
				Help: "Summaries produced by strategy and outcome (ok, degenerate, error).",
			},
			[]string{"strategy", "outcome"},
		),
		SummaryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "summary_latency_seconds",
				Help:    "Time spent producing one summary, by strategy.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"strategy"},
		),
		KeyphrasesReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyphrases_returned",
				Help:    "Number of keyphrases returned by the hybrid ranker.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		OracleLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "specificity_oracle_lookups_total",
				Help: "Specificity oracle lookups by result (ok, error, timeout).",
			},
			[]string{"result"},
		),
		SpecificityCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "specificity_cache_hits_total",
				Help: "Total number of specificity cache hits.",
			},
		),
		SpecificityCacheMiss: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "specificity_cache_misses_total",
				Help: "Total number of specificity cache misses.",
			},
		),
		DocsCommittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_committed_total",
				Help: "Documents committed to a frequency scope, by scope kind.",
			},
			[]string{"scope"},
		),
		StoreWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frequency_store_writes_total",
				Help: "Per-term frequency store upserts by status.",
			},
			[]string{"status"},
		),
		TopicFitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "topic_fit_duration_seconds",
				Help:    "Duration of LDA Gibbs sampling runs.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SummariesTotal,
		m.SummaryLatency,
		m.KeyphrasesReturned,
		m.OracleLookupsTotal,
		m.SpecificityCacheHits,
		m.SpecificityCacheMiss,
		m.DocsCommittedTotal,
		m.StoreWritesTotal,
		m.TopicFitDuration,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveSummary records one finished summary strategy.
func (m *Metrics) ObserveSummary(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SummariesTotal.WithLabelValues(strategy, outcome).Inc()
	m.SummaryLatency.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveKeyphrases records the size of a hybrid ranking.
func (m *Metrics) ObserveKeyphrases(n int) {
	if m == nil {
		return
	}
	m.KeyphrasesReturned.Observe(float64(n))
}

// OracleLookup counts one oracle request outcome.
func (m *Metrics) OracleLookup(result string) {
	if m == nil {
		return
	}
	m.OracleLookupsTotal.WithLabelValues(result).Inc()
}

// CacheResult counts a specificity cache hit or miss.
func (m *Metrics) CacheResult(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SpecificityCacheHits.Inc()
		return
	}
	m.SpecificityCacheMiss.Inc()
}

// DocumentCommitted counts a document recorded into a scope kind.
func (m *Metrics) DocumentCommitted(scope string) {
	if m == nil {
		return
	}
	m.DocsCommittedTotal.WithLabelValues(scope).Inc()
}

// StoreWrites adds n term upserts with the given status.
func (m *Metrics) StoreWrites(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.StoreWritesTotal.WithLabelValues(status).Add(float64(n))
}

// ObserveTopicFit records the duration of one LDA run.
func (m *Metrics) ObserveTopicFit(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TopicFitDuration.Observe(elapsed.Seconds())
}

// SetCircuitState publishes a breaker state (0=closed, 1=open, 2=half-open).
func (m *Metrics) SetCircuitState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
