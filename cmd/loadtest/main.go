// Command loadtest seeds a corpus and then drives a mix of summary and commit
// requests against a running summarizer. It reports client-side latency
// percentiles per request kind plus the per-strategy latencies the server
// reports in each summary result.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var episodes = []string{
	"Welcome back to the show. Today Maria Lopez joins us from Barcelona to talk about urban beekeeping and honey production on city rooftops.",
	"In this episode we dig into the history of the Apollo program, the Saturn V rocket, and what NASA learned from the Apollo 13 accident.",
	"Our guest explains how sourdough fermentation works, why wild yeast needs a stable temperature, and how bakers in San Francisco keep starters alive.",
	"We review the new electric bicycles, compare battery range and motor torque, and ask whether cargo bikes can replace a second car.",
	"The panel discusses the quarterly earnings of Acme Corporation, supply chain delays in Shanghai, and the outlook for semiconductor prices.",
	"A conversation with a marine biologist about coral reef bleaching, ocean temperature records, and restoration work near the Great Barrier Reef.",
	"This week on the podcast: chess openings for beginners, the Sicilian Defense, and what Magnus Carlsen says about practical endgame play.",
	"We talk about distributed databases, consensus protocols like Raft, and how leader election keeps replicated logs consistent.",
}

type options struct {
	baseURL     string
	corpus      string
	workers     int
	duration    time.Duration
	seedDocs    int
	commitRatio float64
	target      int
	strategies  []string
}

// sample is one completed request.
type sample struct {
	kind    string
	status  int
	elapsed time.Duration
	failed  bool
	server  map[string]int64
}

// recorder collects samples from all workers.
type recorder struct {
	mu      sync.Mutex
	samples []sample
}

func (r *recorder) add(s sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.samples)
}

func main() {
	var opts options
	var strategies string
	flag.StringVar(&opts.baseURL, "url", "http://localhost:8080", "summarizer base URL")
	flag.StringVar(&opts.corpus, "corpus", fmt.Sprintf("loadtest-%d", time.Now().Unix()), "corpus to seed and summarize against")
	flag.IntVar(&opts.workers, "concurrency", 10, "concurrent workers")
	flag.DurationVar(&opts.duration, "duration", 30*time.Second, "length of the mixed phase")
	flag.IntVar(&opts.seedDocs, "seed", 50, "background documents committed before the mixed phase")
	flag.Float64Var(&opts.commitRatio, "commit-ratio", 0.1, "fraction of mixed-phase requests that commit instead of summarize")
	flag.IntVar(&opts.target, "target", 5, "keyphrases requested per summary")
	flag.StringVar(&strategies, "strategies", "", "comma-separated strategies; empty runs all")
	flag.Parse()
	if strategies != "" {
		opts.strategies = strings.Split(strategies, ",")
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: opts.workers * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fmt.Printf("summarizer load test against %s, corpus %q\n", opts.baseURL, opts.corpus)

	rec := &recorder{}
	seedStart := time.Now()
	if err := seed(context.Background(), client, opts, rec); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d documents in %s\n", opts.seedDocs, time.Since(seedStart).Round(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for w := range opts.workers {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
		g.Go(func() error {
			for gctx.Err() == nil {
				text := episodes[rng.IntN(len(episodes))]
				if rng.Float64() < opts.commitRatio {
					rec.add(commit(gctx, client, opts, text))
				} else {
					rec.add(summarize(gctx, client, opts, text))
				}
			}
			return nil
		})
	}
	g.Wait()

	if !report(rec.snapshot(), opts.duration) {
		os.Exit(1)
	}
}

// seed commits background documents with bounded concurrency.
func seed(ctx context.Context, client *http.Client, opts options, rec *recorder) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i := range opts.seedDocs {
		g.Go(func() error {
			s := commit(gctx, client, opts, episodes[i%len(episodes)])
			rec.add(s)
			if s.failed {
				return fmt.Errorf("document %d: status %d", i, s.status)
			}
			return nil
		})
	}
	return g.Wait()
}

func commit(ctx context.Context, client *http.Client, opts options, text string) sample {
	url := fmt.Sprintf("%s/api/v1/corpora/%s/documents", opts.baseURL, opts.corpus)
	s, _ := post(ctx, client, "commit", url, map[string]any{"text": text})
	return s
}

func summarize(ctx context.Context, client *http.Client, opts options, text string) sample {
	s, body := post(ctx, client, "summary", opts.baseURL+"/api/v1/summaries", map[string]any{
		"text":         text,
		"corpus_id":    opts.corpus,
		"target_count": opts.target,
		"strategies":   opts.strategies,
	})
	if s.failed {
		return s
	}
	var result struct {
		Summaries []struct {
			Strategy  string `json:"strategy"`
			LatencyMs int64  `json:"latency_ms"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal(body, &result); err == nil {
		s.server = make(map[string]int64, len(result.Summaries))
		for _, sum := range result.Summaries {
			s.server[sum.Strategy] = sum.LatencyMs
		}
	}
	return s
}

func post(ctx context.Context, client *http.Client, kind, url string, payload any) (sample, []byte) {
	s := sample{kind: kind, failed: true}
	buf, err := json.Marshal(payload)
	if err != nil {
		return s, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return s, nil
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		s.elapsed = time.Since(start)
		return s, nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.elapsed = time.Since(start)
	s.status = resp.StatusCode
	s.failed = err != nil || resp.StatusCode/100 != 2
	return s, body
}

// report prints the results and returns false when nothing succeeded.
func report(samples []sample, window time.Duration) bool {
	byKind := map[string][]time.Duration{}
	codes := map[int]int{}
	server := map[string][]time.Duration{}
	failures := 0
	for _, s := range samples {
		codes[s.status]++
		if s.failed {
			failures++
			continue
		}
		byKind[s.kind] = append(byKind[s.kind], s.elapsed)
		for strategy, ms := range s.server {
			server[strategy] = append(server[strategy], time.Duration(ms)*time.Millisecond)
		}
	}

	fmt.Printf("\nrequests: %d  failed: %d  throughput: %.1f req/s\n",
		len(samples), failures, float64(len(samples))/window.Seconds())

	fmt.Println("\nclient latency")
	printTable(byKind)
	fmt.Println("\nserver latency per strategy")
	printTable(server)

	fmt.Println("\nstatus codes")
	for _, code := range slices.Sorted(slices.Values(mapKeys(codes))) {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "transport error"
		}
		fmt.Printf("  %-16s %d\n", label, codes[code])
	}

	if failures == len(samples) {
		fmt.Println("\nno request succeeded; is the summarizer running?")
		return false
	}
	return true
}

func printTable(rows map[string][]time.Duration) {
	fmt.Printf("  %-10s %7s %10s %10s %10s %10s %10s\n", "name", "n", "mean", "p50", "p95", "p99", "stddev")
	for _, name := range slices.Sorted(slices.Values(mapKeys(rows))) {
		d := rows[name]
		slices.Sort(d)
		mean, sd := meanStddev(d)
		fmt.Printf("  %-10s %7d %10s %10s %10s %10s %10s\n", name, len(d),
			mean.Round(time.Microsecond), quantile(d, 0.50), quantile(d, 0.95), quantile(d, 0.99), sd.Round(time.Microsecond))
	}
}

func meanStddev(d []time.Duration) (time.Duration, time.Duration) {
	if len(d) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range d {
		sum += float64(v)
	}
	mean := sum / float64(len(d))
	var sq float64
	for _, v := range d {
		sq += (float64(v) - mean) * (float64(v) - mean)
	}
	return time.Duration(mean), time.Duration(math.Sqrt(sq / float64(len(d))))
}

// quantile uses nearest rank on an ascending slice.
func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	return sorted[max(0, min(rank, len(sorted)-1))]
}

func mapKeys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
