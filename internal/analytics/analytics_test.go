package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) snapshot() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Event(nil), p.events...)
}

func TestCollectorPublishesKeyedByCorpus(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 8)
	c.Start(context.Background())

	c.Track(SummaryEvent{Type: EventSummary, CorpusID: "podcasts"})
	c.Track(CommitEvent{Type: EventCommit, CorpusID: "meetings"})
	c.Track("other")
	c.Close()

	events := pub.snapshot()
	if len(events) != 3 {
		t.Fatalf("published %d events, want 3", len(events))
	}
	wantKeys := []string{"podcasts", "meetings", "analytics"}
	for i, want := range wantKeys {
		if events[i].Key != want {
			t.Errorf("event %d key = %q, want %q", i, events[i].Key, want)
		}
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1)
	c.Track(SummaryEvent{CorpusID: "a"})
	c.Track(SummaryEvent{CorpusID: "b"})

	c.Start(context.Background())
	c.Close()
	if got := len(pub.snapshot()); got != 1 {
		t.Fatalf("published %d events, want 1", got)
	}
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16)
	for i := 0; i < 5; i++ {
		c.Track(CommitEvent{CorpusID: "c"})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Start(ctx)
	c.Close()
	if got := len(pub.snapshot()); got != 5 {
		t.Fatalf("published %d events, want 5", got)
	}
}

func TestNilCollectorTrack(t *testing.T) {
	var c *Collector
	c.Track(SummaryEvent{})
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleEventAggregates(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)
	ctx := context.Background()

	messages := [][]byte{
		encode(t, SummaryEvent{
			Type:       EventSummary,
			CorpusID:   "podcasts",
			References: 1,
			LatencyMs:  100,
			Strategies: []StrategyResult{
				{Strategy: "tfidf", Keyphrases: []string{"gum", "hat"}, Rouge1: 0.5, Rouge2: 0.25},
				{Strategy: "hybrid", Keyphrases: []string{"gum"}, Rouge1: 1, Rouge2: 0.5},
			},
		}),
		encode(t, SummaryEvent{
			Type:      EventSummary,
			CorpusID:  "podcasts",
			LatencyMs: 300,
			Strategies: []StrategyResult{
				{Strategy: "tfidf", Keyphrases: []string{"gum"}},
			},
		}),
		encode(t, SummaryEvent{
			Type:      EventDegenerate,
			CorpusID:  "meetings",
			LatencyMs: 200,
			Strategies: []StrategyResult{
				{Strategy: "hybrid", Keyphrases: []string{"uh huh"}},
			},
		}),
		encode(t, CommitEvent{Type: EventCommit, CorpusID: "podcasts", Terms: 7}),
		[]byte("not json"),
		encode(t, map[string]string{"type": "mystery"}),
	}
	for _, msg := range messages {
		if err := handle(ctx, nil, msg); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}

	stats := agg.Stats()
	if stats.TotalSummaries != 3 || stats.DegenerateCount != 1 {
		t.Fatalf("summaries = %d degenerate = %d, want 3 and 1", stats.TotalSummaries, stats.DegenerateCount)
	}
	if stats.TotalCommits != 1 || stats.CommittedTerms != 7 {
		t.Fatalf("commits = %d terms = %d, want 1 and 7", stats.TotalCommits, stats.CommittedTerms)
	}
	if stats.AvgLatencyMs != 200 || stats.P50LatencyMs != 200 {
		t.Fatalf("latency avg = %v p50 = %d, want 200", stats.AvgLatencyMs, stats.P50LatencyMs)
	}
	if len(stats.Strategies) != 2 || stats.Strategies[0].Strategy != "hybrid" {
		t.Fatalf("strategies = %+v", stats.Strategies)
	}
	tfidf := stats.Strategies[1]
	if tfidf.Count != 2 || tfidf.Scored != 1 || tfidf.AvgRouge1 != 0.5 || tfidf.AvgRouge2 != 0.25 {
		t.Fatalf("tfidf stats = %+v", tfidf)
	}
	if len(stats.TopKeyphrases) != 2 || stats.TopKeyphrases[0] != (KeyphraseCount{Text: "gum", Count: 3}) {
		t.Fatalf("top keyphrases = %+v", stats.TopKeyphrases)
	}
	if stats.TopCorpora[0] != (KeyphraseCount{Text: "podcasts", Count: 2}) {
		t.Fatalf("top corpora = %+v", stats.TopCorpora)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		pct  int
		want int64
	}{
		{50, 6},
		{95, 10},
		{99, 10},
	}
	for _, tc := range tests {
		if got := percentile(sorted, tc.pct); got != tc.want {
			t.Errorf("percentile(%d) = %d, want %d", tc.pct, got, tc.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %d, want 0", got)
	}
}

func TestStatsHandlerFiltersStrategy(t *testing.T) {
	agg := NewAggregator(nil)
	agg.RecordSummary(SummaryEvent{
		Type:      EventSummary,
		Timestamp: time.Now(),
		Strategies: []StrategyResult{
			{Strategy: "lda"},
			{Strategy: "tfidf"},
		},
	})
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?strategy=lda", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats.Strategies) != 1 || stats.Strategies[0].Strategy != "lda" {
		t.Fatalf("strategies = %+v, want only lda", stats.Strategies)
	}
	if stats.TotalSummaries != 1 {
		t.Fatalf("total = %d, want 1", stats.TotalSummaries)
	}
}

func TestHandlerTopLimit(t *testing.T) {
	agg := NewAggregator(nil)
	for _, corpus := range []string{"podcasts", "lectures", "podcasts"} {
		agg.RecordSummary(SummaryEvent{
			Type:      EventSummary,
			CorpusID:  corpus,
			Timestamp: time.Now(),
			Strategies: []StrategyResult{
				{Strategy: "tfidf", Keyphrases: []string{"rooftop hive", "honey", corpus}},
			},
		})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats.TopKeyphrases) != 1 || len(stats.TopCorpora) != 1 {
		t.Fatalf("top=1 returned %d keyphrases and %d corpora", len(stats.TopKeyphrases), len(stats.TopCorpora))
	}
	if stats.TopCorpora[0].Text != "podcasts" {
		t.Fatalf("top corpus = %+v", stats.TopCorpora[0])
	}

	for _, bad := range []string{"0", "-2", "ten"} {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top="+bad, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("top=%s: status = %d, want 400", bad, rec.Code)
		}
	}
}
