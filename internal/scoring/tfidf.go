// Package scoring computes log-scaled TF-IDF and the user-blended TF-IUDF
// weights over scoped document-frequency stores, and ranks terms by them.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

// TFIDF returns (1 + log2 tf) * idf. Non-positive tf scores zero.
func TFIDF(tf int, idf float64) float64 {
	return logTF(tf) * idf
}

// WeightedTFIUDF blends a user IDF and a corpus IDF with weight k:
// (1 + log2 tf) * (k*userIdf + (1-k)*corpusIdf).
func WeightedTFIUDF(tf int, corpusIDF, userIDF, k float64) (float64, error) {
	if err := ValidateBlendWeight(k); err != nil {
		return 0, err
	}
	return logTF(tf) * (k*userIDF + (1-k)*corpusIDF), nil
}

// ValidateBlendWeight rejects k outside [0,1].
func ValidateBlendWeight(k float64) error {
	if math.IsNaN(k) || k < 0 || k > 1 {
		return apperrors.InvalidParameterf("blend weight must be within [0,1], got %v", k)
	}
	return nil
}

// IDF returns log2(collectionSize / df), padding an empty collection to one
// document and an unseen term to one occurrence.
func IDF(collectionSize, df int) float64 {
	n := max(collectionSize, 1)
	df = max(df, 1)
	return math.Log2(float64(n) / float64(df))
}

func logTF(tf int) float64 {
	if tf < 1 {
		return 0
	}
	return 1 + math.Log2(float64(tf))
}

// ScoredTerm is a term with its weight.
type ScoredTerm struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Rank sorts by score descending, breaking ties by term, and keeps at most
// limit entries when limit is positive.
func Rank(scored []ScoredTerm, limit int) []ScoredTerm {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Term < scored[j].Term
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Options selects the IDF sources. When User is set, scores use
// WeightedTFIUDF with BlendWeight; otherwise plain TF-IDF over Corpus.
type Options struct {
	Corpus      frequency.Scope
	User        *frequency.Scope
	BlendWeight float64
}

// Scorer reads IDF values from a frequency store.
type Scorer struct {
	store frequency.Store
}

func NewScorer(store frequency.Store) *Scorer {
	return &Scorer{store: store}
}

// IDF computes the inverse document frequency of term within scope.
func (s *Scorer) IDF(ctx context.Context, scope frequency.Scope, term string) (float64, error) {
	n, err := s.store.CollectionSize(ctx, scope)
	if err != nil {
		return 0, err
	}
	df, err := s.store.DocumentFrequency(ctx, scope, term)
	if err != nil {
		return 0, err
	}
	return IDF(n, df), nil
}

// Score weights every term of freqs. The result is ranked.
func (s *Scorer) Score(ctx context.Context, freqs map[string]int, opts Options) ([]ScoredTerm, error) {
	if opts.User != nil {
		if err := ValidateBlendWeight(opts.BlendWeight); err != nil {
			return nil, err
		}
	}
	corpusN, err := s.store.CollectionSize(ctx, opts.Corpus)
	if err != nil {
		return nil, err
	}
	var userN int
	if opts.User != nil {
		if userN, err = s.store.CollectionSize(ctx, *opts.User); err != nil {
			return nil, err
		}
	}

	scored := make([]ScoredTerm, 0, len(freqs))
	for term, tf := range freqs {
		df, err := s.store.DocumentFrequency(ctx, opts.Corpus, term)
		if err != nil {
			return nil, fmt.Errorf("scoring %q: %w", term, err)
		}
		corpusIDF := IDF(corpusN, df)
		score := TFIDF(tf, corpusIDF)
		if opts.User != nil {
			udf, err := s.store.DocumentFrequency(ctx, *opts.User, term)
			if err != nil {
				return nil, fmt.Errorf("scoring %q: %w", term, err)
			}
			if score, err = WeightedTFIUDF(tf, corpusIDF, IDF(userN, udf), opts.BlendWeight); err != nil {
				return nil, err
			}
		}
		scored = append(scored, ScoredTerm{Term: term, Score: score})
	}
	return Rank(scored, 0), nil
}

// Summarize returns the target highest-weighted terms of freqs. Fewer
// terms than target are all returned.
func (s *Scorer) Summarize(ctx context.Context, freqs map[string]int, target int, opts Options) ([]string, error) {
	if target < 1 {
		return nil, apperrors.InvalidParameterf("target count must be positive, got %d", target)
	}
	scored, err := s.Score(ctx, freqs, opts)
	if err != nil {
		return nil, err
	}
	scored = Rank(scored, target)
	terms := make([]string, len(scored))
	for i, st := range scored {
		terms[i] = st.Term
	}
	return terms, nil
}
