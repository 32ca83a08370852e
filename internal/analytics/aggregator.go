package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
)

type AggregatedStats struct {
	TotalSummaries     int64            `json:"total_summaries"`
	TotalCommits       int64            `json:"total_commits"`
	CommittedTerms     int64            `json:"committed_terms"`
	DegenerateCount    int64            `json:"degenerate_count"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	P50LatencyMs       int64            `json:"p50_latency_ms"`
	P95LatencyMs       int64            `json:"p95_latency_ms"`
	P99LatencyMs       int64            `json:"p99_latency_ms"`
	Strategies         []StrategyStats  `json:"strategies"`
	TopKeyphrases      []KeyphraseCount `json:"top_keyphrases"`
	TopCorpora         []KeyphraseCount `json:"top_corpora"`
	SummariesPerMinute float64          `json:"summaries_per_minute"`
}

// StrategyStats averages ROUGE over the summaries that were scored against
// at least one reference.
type StrategyStats struct {
	Strategy     string  `json:"strategy"`
	Count        int64   `json:"count"`
	Scored       int64   `json:"scored"`
	AvgRouge1    float64 `json:"avg_rouge_1"`
	AvgRouge2    float64 `json:"avg_rouge_2"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

type KeyphraseCount struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

type strategyTotals struct {
	count, scored  int64
	rouge1, rouge2 float64
	latencyMs      int64
}

type Aggregator struct {
	mu             sync.RWMutex
	totalSummaries atomic.Int64
	totalCommits   atomic.Int64
	committedTerms atomic.Int64
	degenerate     atomic.Int64
	latencies      []int64
	strategies     map[string]*strategyTotals
	keyphrases     map[string]int64
	corpora        map[string]int64
	startTime      time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:  make([]int64, 0, 10000),
		strategies: make(map[string]*strategyTotals),
		keyphrases: make(map[string]int64),
		corpora:    make(map[string]int64),
		startTime:  time.Now(),
		consumer:   consumer,
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetConsumer attaches the consumer whose handler feeds this aggregator.
func (a *Aggregator) SetConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventSummary, EventDegenerate:
			event, err := kafka.DecodeJSON[SummaryEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode summary event", "error", err)
				return nil
			}
			agg.RecordSummary(event)
		case EventCommit:
			event, err := kafka.DecodeJSON[CommitEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode commit event", "error", err)
				return nil
			}
			agg.RecordCommit(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

func (a *Aggregator) RecordSummary(event SummaryEvent) {
	a.totalSummaries.Add(1)
	if event.Type == EventDegenerate {
		a.degenerate.Add(1)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.corpora[event.CorpusID]++
	for _, s := range event.Strategies {
		t, ok := a.strategies[s.Strategy]
		if !ok {
			t = &strategyTotals{}
			a.strategies[s.Strategy] = t
		}
		t.count++
		t.latencyMs += s.LatencyMs
		if event.References > 0 {
			t.scored++
			t.rouge1 += s.Rouge1
			t.rouge2 += s.Rouge2
		}
		if event.Type == EventDegenerate {
			continue
		}
		for _, k := range s.Keyphrases {
			a.keyphrases[k]++
		}
	}
}

func (a *Aggregator) RecordCommit(event CommitEvent) {
	a.totalCommits.Add(1)
	a.committedTerms.Add(int64(event.Terms))
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSummaries:  a.totalSummaries.Load(),
		TotalCommits:    a.totalCommits.Load(),
		CommittedTerms:  a.committedTerms.Load(),
		DegenerateCount: a.degenerate.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	stats.Strategies = make([]StrategyStats, 0, len(a.strategies))
	for name, t := range a.strategies {
		s := StrategyStats{Strategy: name, Count: t.count, Scored: t.scored}
		if t.count > 0 {
			s.AvgLatencyMs = float64(t.latencyMs) / float64(t.count)
		}
		if t.scored > 0 {
			s.AvgRouge1 = t.rouge1 / float64(t.scored)
			s.AvgRouge2 = t.rouge2 / float64(t.scored)
		}
		stats.Strategies = append(stats.Strategies, s)
	}
	sort.Slice(stats.Strategies, func(i, j int) bool {
		return stats.Strategies[i].Strategy < stats.Strategies[j].Strategy
	})

	stats.TopKeyphrases = topN(a.keyphrases, 10)
	stats.TopCorpora = topN(a.corpora, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.SummariesPerMinute = float64(stats.TotalSummaries) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []KeyphraseCount {
	result := make([]KeyphraseCount, 0, len(counts))
	for text, count := range counts {
		result = append(result, KeyphraseCount{Text: text, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Text < result[j].Text
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
