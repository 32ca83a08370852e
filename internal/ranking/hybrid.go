// Package ranking merges candidate terms and named entities into one
// keyphrase list. It suppresses near-duplicates, then ranks the survivors by
// a blend of normalized TF-IDF and oracle specificity.
package ranking

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/stopwords"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
	"gonum.org/v1/gonum/floats"
)

// tfidfWeight is γ in γ·tfidf + (1-γ)·specificity.
const tfidfWeight = 0.5

// scoreTolerance absorbs float rounding in the mean when scores tie.
const scoreTolerance = 1e-9

// entityGroup is the normalization group shared by all named entities.
const entityGroup = "NAMED_ENTITY"

// Term is one keyphrase candidate entering the ranker.
type Term struct {
	Text string `json:"text"`
	// Type is the candidate TermType or the entity's NER tag.
	Type      string `json:"type"`
	Entity    bool   `json:"entity"`
	Frequency int    `json:"frequency"`
}

// idfKey is the typed-term store key used for IDF lookups.
func (t Term) idfKey() string {
	if t.Entity {
		return string(extract.TypeEntity) + ":" + t.Text
	}
	return t.Type + ":" + t.Text
}

func (t Term) group() string {
	if t.Entity {
		return entityGroup
	}
	return t.Type
}

// Keyphrase is a ranked term.
type Keyphrase struct {
	Text        string  `json:"text"`
	Type        string  `json:"type"`
	Entity      bool    `json:"entity,omitempty"`
	Frequency   int     `json:"frequency,omitempty"`
	Score       float64 `json:"score"`
	TFIDF       float64 `json:"tfidf"`
	Specificity float64 `json:"specificity"`
	// Degenerate marks the whole-text summary returned when a document has
	// no candidate terms or entities.
	Degenerate bool `json:"degenerate,omitempty"`
}

// Specifier scores term specificity in [0,1].
type Specifier interface {
	Specificity(ctx context.Context, term string) (float64, error)
}

// Config tunes the ranker.
type Config struct {
	// BlendWeight is k in the user/corpus IDF blend.
	BlendWeight         float64
	SimilarityThreshold float64
	EntityTypes         []string
	// OracleBudget bounds the whole specificity phase. Zero is unbounded.
	OracleBudget time.Duration
	Stopwords    stopwords.Set
}

type Ranker struct {
	scorer      *scoring.Scorer
	specifier   Specifier
	cfg         Config
	entityTypes map[string]struct{}
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewRanker builds a ranker. A nil specifier scores every term's
// specificity as zero.
func NewRanker(scorer *scoring.Scorer, specifier Specifier, cfg Config, m *metrics.Metrics) *Ranker {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	types := make(map[string]struct{}, len(cfg.EntityTypes))
	for _, t := range cfg.EntityTypes {
		types[t] = struct{}{}
	}
	return &Ranker{
		scorer:      scorer,
		specifier:   specifier,
		cfg:         cfg,
		entityTypes: types,
		metrics:     m,
		logger:      slog.Default().With("component", "hybrid-ranker"),
	}
}

// Rank merges candidates (keyed "TYPE:text") and entities (keyed
// "NER_TAG:text"), drops near-duplicates, and returns at most target
// keyphrases. IDF comes from corpus, blended with user when user is set.
//
// When fewer than target terms survive deduplication they are all returned
// unscored, ordered by frequency. If the specificity phase exceeds its
// budget Rank fails with ErrOracleTimeout and returns nothing.
func (r *Ranker) Rank(ctx context.Context, candidates, entities extract.FrequencyMap, target int, corpus frequency.Scope, user *frequency.Scope) ([]Keyphrase, error) {
	if target < 1 {
		return nil, apperrors.InvalidParameterf("target count must be positive, got %d", target)
	}
	if user != nil {
		if err := scoring.ValidateBlendWeight(r.cfg.BlendWeight); err != nil {
			return nil, err
		}
	}

	terms := r.merge(candidates, entities)
	before := len(terms)
	terms = Deduplicate(terms, r.cfg.SimilarityThreshold)
	r.logger.Debug("terms merged",
		"candidates", len(candidates),
		"entities", len(entities),
		"merged", before,
		"after_dedup", len(terms),
	)

	if len(terms) < target {
		return unscored(terms), nil
	}

	spec, err := r.specificities(ctx, terms)
	if err != nil {
		return nil, err
	}

	freqs := make(map[string]int, len(terms))
	for _, t := range terms {
		freqs[t.idfKey()] += t.Frequency
	}
	scored, err := r.scorer.Score(ctx, freqs, scoring.Options{
		Corpus:      corpus.WithField(frequency.FieldTerm),
		User:        termScope(user),
		BlendWeight: r.cfg.BlendWeight,
	})
	if err != nil {
		return nil, err
	}
	tfidf := make(map[string]float64, len(scored))
	for _, st := range scored {
		tfidf[st.Term] = st.Score
	}

	raw := make([]float64, len(terms))
	for i, t := range terms {
		raw[i] = tfidf[t.idfKey()]
	}
	normalized := normalizeByGroup(terms, raw)

	phrases := make([]Keyphrase, len(terms))
	scores := make([]float64, len(terms))
	for i, t := range terms {
		score := tfidfWeight*normalized[i] + (1-tfidfWeight)*spec[i]
		phrases[i] = Keyphrase{
			Text:        t.Text,
			Type:        t.Type,
			Entity:      t.Entity,
			Frequency:   t.Frequency,
			Score:       score,
			TFIDF:       raw[i],
			Specificity: spec[i],
		}
		scores[i] = score
	}
	threshold := keepThreshold(scores)

	kept := phrases[:0]
	for _, p := range phrases {
		if p.Score >= threshold {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Text < kept[j].Text
	})
	if len(kept) > target {
		kept = kept[:target]
	}
	r.metrics.ObserveKeyphrases(len(kept))
	return kept, nil
}

// keepThreshold is the mean score, less a rounding allowance and never above
// the best score, so tied scores all stay and at least one term survives.
func keepThreshold(scores []float64) float64 {
	mean := floats.Sum(scores) / float64(len(scores))
	return min(mean, floats.Max(scores)) - scoreTolerance
}

// merge builds the term union. Entities outside the allowed types and
// stopword-only terms are dropped, and a candidate whose text equals an
// entity's text gives way to the entity.
func (r *Ranker) merge(candidates, entities extract.FrequencyMap) []Term {
	var terms []Term
	entityTexts := make(map[string]struct{})
	for _, key := range entities.Keys() {
		e, err := extract.ParseEntityKey(key)
		if err != nil {
			r.logger.Warn("skipping malformed entity key", "key", key, "error", err)
			continue
		}
		if _, ok := r.entityTypes[e.EntityType]; !ok {
			continue
		}
		if r.cfg.Stopwords.Contains(e.Text) {
			continue
		}
		entityTexts[e.Text] = struct{}{}
		terms = append(terms, Term{Text: e.Text, Type: e.EntityType, Entity: true, Frequency: entities[key]})
	}
	for _, key := range candidates.Keys() {
		c, err := extract.ParseKey(key)
		if err != nil {
			r.logger.Warn("skipping malformed candidate key", "key", key, "error", err)
			continue
		}
		if r.cfg.Stopwords.Contains(c.Text) {
			continue
		}
		if _, dup := entityTexts[c.Text]; dup {
			continue
		}
		terms = append(terms, Term{Text: c.Text, Type: string(c.Type), Frequency: candidates[key]})
	}
	return terms
}

// specificities queries the oracle for each term in turn. The whole loop
// runs under the oracle budget.
func (r *Ranker) specificities(ctx context.Context, terms []Term) ([]float64, error) {
	spec := make([]float64, len(terms))
	if r.specifier == nil {
		return spec, nil
	}
	start := time.Now()
	err := resilience.WithTimeout(ctx, r.cfg.OracleBudget, "specificity lookups", func(ctx context.Context) error {
		for i, t := range terms {
			s, err := r.specifier.Specificity(ctx, t.Text)
			if err != nil {
				return err
			}
			spec[i] = s
		}
		return nil
	})
	if err != nil {
		if resilience.IsTimeout(err) && ctx.Err() == nil {
			r.metrics.OracleLookup("timeout")
			r.logger.Warn("specificity budget exceeded",
				"terms", len(terms),
				"budget", r.cfg.OracleBudget,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, apperrors.Newf(apperrors.ErrOracleTimeout, http.StatusGatewayTimeout,
				"specificity lookups for %d terms exceeded %v", len(terms), r.cfg.OracleBudget)
		}
		return nil, err
	}
	return spec, nil
}

func termScope(user *frequency.Scope) *frequency.Scope {
	if user == nil {
		return nil
	}
	s := user.WithField(frequency.FieldTerm)
	return &s
}

// normalizeByGroup min-max scales values within each term group. A group
// whose values are all equal scales to 1.
func normalizeByGroup(terms []Term, values []float64) []float64 {
	type bounds struct{ lo, hi float64 }
	groups := make(map[string]*bounds)
	for i, t := range terms {
		b, ok := groups[t.group()]
		if !ok {
			groups[t.group()] = &bounds{lo: values[i], hi: values[i]}
			continue
		}
		b.lo = min(b.lo, values[i])
		b.hi = max(b.hi, values[i])
	}
	out := make([]float64, len(values))
	for i, t := range terms {
		b := groups[t.group()]
		if b.hi == b.lo {
			out[i] = 1
			continue
		}
		out[i] = (values[i] - b.lo) / (b.hi - b.lo)
	}
	return out
}

func unscored(terms []Term) []Keyphrase {
	sorted := make([]Term, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Frequency != sorted[j].Frequency {
			return sorted[i].Frequency > sorted[j].Frequency
		}
		return sorted[i].Text < sorted[j].Text
	})
	out := make([]Keyphrase, len(sorted))
	for i, t := range sorted {
		out[i] = Keyphrase{Text: t.Text, Type: t.Type, Entity: t.Entity, Frequency: t.Frequency}
	}
	return out
}
