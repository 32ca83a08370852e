package scoring

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

const epsilon = 1e-9

func TestIDF(t *testing.T) {
	tests := []struct {
		name string
		n    int
		df   int
		want float64
	}{
		{"empty collection", 0, 0, 0},
		{"unseen term", 8, 0, 3},
		{"common term", 8, 2, 2},
		{"everywhere", 8, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IDF(tt.n, tt.df); math.Abs(got-tt.want) > epsilon {
				t.Fatalf("IDF(%d, %d) = %v, want %v", tt.n, tt.df, got, tt.want)
			}
		})
	}
}

func TestTFIDF(t *testing.T) {
	if got := TFIDF(4, 2); math.Abs(got-6) > epsilon {
		t.Fatalf("TFIDF(4, 2) = %v, want 6", got)
	}
	if got := TFIDF(0, 2); got != 0 {
		t.Fatalf("TFIDF(0, 2) = %v, want 0", got)
	}
}

func TestWeightedTFIUDF(t *testing.T) {
	got, err := WeightedTFIUDF(2, 4, 2, 0.25)
	if err != nil {
		t.Fatalf("WeightedTFIUDF: %v", err)
	}
	// (1 + log2 2) * (0.25*2 + 0.75*4)
	if math.Abs(got-7) > epsilon {
		t.Fatalf("WeightedTFIUDF = %v, want 7", got)
	}

	for _, k := range []float64{-0.1, 1.1, math.NaN()} {
		if _, err := WeightedTFIUDF(2, 4, 2, k); !errors.Is(err, apperrors.ErrInvalidParameter) {
			t.Errorf("k=%v: expected ErrInvalidParameter, got %v", k, err)
		}
	}
}

func TestRankBreaksTiesByTerm(t *testing.T) {
	scored := []ScoredTerm{{"b", 1}, {"c", 2}, {"a", 1}}
	got := Rank(scored, 2)
	want := []ScoredTerm{{"c", 2}, {"a", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Rank = %v, want %v", got, want)
	}
}

func seededScorer(t *testing.T) (*Scorer, frequency.Scope, frequency.Scope) {
	t.Helper()
	ctx := context.Background()
	store := frequency.NewMemoryStore()
	corpus := frequency.CorpusScope("shows", frequency.FieldLemma)
	user := frequency.UserScope("u1", frequency.FieldLemma)

	docs := map[string]map[string]int{
		"d1": {"gum": 1, "hat": 1},
		"d2": {"gum": 1},
		"d3": {"gum": 1},
		"d4": {"tree": 1},
	}
	for id, freqs := range docs {
		if err := store.RecordDocument(ctx, corpus, id, freqs); err != nil {
			t.Fatalf("seeding corpus: %v", err)
		}
	}
	for id, freqs := range map[string]map[string]int{"u1": {"hat": 1}, "u2": {"gum": 1}} {
		if err := store.RecordDocument(ctx, user, id, freqs); err != nil {
			t.Fatalf("seeding user: %v", err)
		}
	}
	return NewScorer(store), corpus, user
}

func TestSummarizeCorpusOnly(t *testing.T) {
	scorer, corpus, _ := seededScorer(t)
	freqs := map[string]int{"gum": 4, "hat": 1, "unseen": 2}

	got, err := scorer.Summarize(context.Background(), freqs, 2, Options{Corpus: corpus})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if want := []string{"unseen", "hat"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Summarize = %v, want %v", got, want)
	}
}

func TestSummarizeWithUserScope(t *testing.T) {
	scorer, corpus, user := seededScorer(t)
	freqs := map[string]int{"gum": 4, "hat": 1, "unseen": 2}

	got, err := scorer.Summarize(context.Background(), freqs, 5, Options{Corpus: corpus, User: &user, BlendWeight: 1})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if want := []string{"gum", "unseen", "hat"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Summarize = %v, want %v", got, want)
	}
}

func TestSummarizeRejectsBadInput(t *testing.T) {
	scorer, corpus, user := seededScorer(t)
	ctx := context.Background()

	if _, err := scorer.Summarize(ctx, map[string]int{"gum": 1}, 0, Options{Corpus: corpus}); !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Fatalf("target 0: expected ErrInvalidParameter, got %v", err)
	}
	if _, err := scorer.Score(ctx, map[string]int{"gum": 1}, Options{Corpus: corpus, User: &user, BlendWeight: 1.5}); !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Fatalf("blend 1.5: expected ErrInvalidParameter, got %v", err)
	}
}

func TestScorerIDFOnEmptyScope(t *testing.T) {
	scorer, _, _ := seededScorer(t)
	idf, err := scorer.IDF(context.Background(), frequency.CorpusScope("empty", frequency.FieldLemma), "gum")
	if err != nil {
		t.Fatalf("IDF: %v", err)
	}
	if idf != 0 {
		t.Fatalf("IDF over empty scope = %v, want 0", idf)
	}
}
