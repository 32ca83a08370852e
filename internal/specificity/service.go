package specificity

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
)

// Score maps a result count to [0,1]: zero results score 1 and counts at or
// above saturation score 0, falling logarithmically in between.
func Score(count, saturation int) float64 {
	if count <= 0 {
		return 1
	}
	if saturation < 1 || count >= saturation {
		return 0
	}
	s := 1 - math.Log1p(float64(count))/math.Log1p(float64(saturation))
	return math.Max(0, math.Min(1, s))
}

// Scorer answers specificity queries through a cache in front of a paced
// oracle.
type Scorer struct {
	oracle     Oracle
	cache      Cache
	pacer      *Pacer
	saturation int
	metrics    *metrics.Metrics
	group      singleflight.Group
	logger     *slog.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	lookups atomic.Int64
	errors  atomic.Int64
}

func NewScorer(oracle Oracle, cache Cache, pacer *Pacer, saturation int, m *metrics.Metrics) *Scorer {
	return &Scorer{
		oracle:     oracle,
		cache:      cache,
		pacer:      pacer,
		saturation: saturation,
		metrics:    m,
		logger:     slog.Default().With("component", "specificity"),
	}
}

// Specificity returns the specificity score of term. A failed oracle call is
// returned to the caller and nothing is cached for the term.
func (s *Scorer) Specificity(ctx context.Context, term string) (float64, error) {
	n, err := s.Count(ctx, term)
	if err != nil {
		return 0, err
	}
	return Score(n, s.saturation), nil
}

// Count returns the oracle count for term, from the cache when possible.
func (s *Scorer) Count(ctx context.Context, term string) (int, error) {
	if n, ok := s.cached(ctx, term); ok {
		s.hits.Add(1)
		s.metrics.CacheResult(true)
		return n, nil
	}
	s.misses.Add(1)
	s.metrics.CacheResult(false)

	key := strings.ToLower(strings.TrimSpace(term))
	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		if n, ok := s.cached(ctx, key); ok {
			return n, nil
		}
		var n int
		err := s.pacer.Do(ctx, func() error {
			var err error
			s.lookups.Add(1)
			n, err = s.oracle.Count(ctx, key)
			return err
		})
		if err != nil {
			s.errors.Add(1)
			s.metrics.OracleLookup("error")
			return nil, err
		}
		s.metrics.OracleLookup("ok")
		if err := s.cache.Set(ctx, key, n); err != nil {
			s.logger.Error("cache set failed", "term", key, "error", err)
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return val.(int), nil
}

func (s *Scorer) cached(ctx context.Context, term string) (int, bool) {
	n, ok, err := s.cache.Get(ctx, term)
	if err != nil {
		s.logger.Error("cache get failed", "term", term, "error", err)
		return 0, false
	}
	return n, ok
}

// Stats summarizes cache and oracle activity since start.
type Stats struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	OracleLookups int64 `json:"oracle_lookups"`
	OracleErrors  int64 `json:"oracle_errors"`
	CachedTerms   int64 `json:"cached_terms"`
}

func (s *Scorer) Stats(ctx context.Context) (Stats, error) {
	size, err := s.cache.Size(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		CacheHits:     s.hits.Load(),
		CacheMisses:   s.misses.Load(),
		OracleLookups: s.lookups.Load(),
		OracleErrors:  s.errors.Load(),
		CachedTerms:   size,
	}, nil
}
