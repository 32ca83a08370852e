// Package specificity scores how specific a term is by asking an external
// knowledge base how many entries match it: the fewer matches, the more
// specific the term. Lookups are paced one at a time and their counts are
// cached across runs.
package specificity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
)

// Oracle returns the number of knowledge-base entries matching term.
type Oracle interface {
	Count(ctx context.Context, term string) (int, error)
}

// DBpediaClient queries the DBpedia Lookup service.
type DBpediaClient struct {
	baseURL    string
	maxResults int
	timeout    time.Duration
	http       *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *slog.Logger
}

type lookupResponse struct {
	Docs []json.RawMessage `json:"docs"`
}

func NewDBpediaClient(cfg config.OracleConfig, m *metrics.Metrics) *DBpediaClient {
	return &DBpediaClient{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		maxResults: cfg.Saturation,
		timeout:    cfg.RequestTimeout,
		http:       &http.Client{},
		breaker: resilience.NewCircuitBreaker("dbpedia-lookup", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     time.Minute,
			OnStateChange: func(name string, state resilience.State) {
				m.SetCircuitState(name, int(state))
			},
		}),
		logger: slog.Default().With("component", "dbpedia-oracle"),
	}
}

// Count returns how many lookup results the service reports for term, up to
// the configured saturation.
func (c *DBpediaClient) Count(ctx context.Context, term string) (int, error) {
	var n int
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "dbpedia lookup", func(ctx context.Context) error {
			var err error
			n, err = c.count(ctx, term)
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("looking up %q: %w", term, err)
	}
	c.logger.Debug("lookup complete", "term", term, "results", n)
	return n, nil
}

func (c *DBpediaClient) count(ctx context.Context, term string) (int, error) {
	q := url.Values{}
	q.Set("query", term)
	q.Set("format", "JSON")
	if c.maxResults > 0 {
		q.Set("maxResults", strconv.Itoa(c.maxResults))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("lookup returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding lookup response: %w", err)
	}
	return len(payload.Docs), nil
}
