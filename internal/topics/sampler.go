// Package topics fits an LDA topic model with a collapsed Gibbs sampler and
// labels documents with the most probable terms of their topics. The sampler
// works over dense integer vocabularies, so lemma and candidate-term corpora
// share one implementation.
package topics

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"

	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

// Params configures one fit.
type Params struct {
	Topics       int
	Alpha        float64
	Beta         float64
	Iterations   int
	BurnIn       int
	ThinInterval int
	SampleLag    int
	// Seed fixes the random source. Zero draws a random seed.
	Seed uint64
}

// DefaultParams mirrors the defaults of the summarizer configuration.
func DefaultParams() Params {
	return Params{
		Topics:       5,
		Alpha:        2,
		Beta:         0.5,
		Iterations:   1000,
		BurnIn:       200,
		ThinInterval: 100,
		SampleLag:    10,
	}
}

func (p Params) validate(docs [][]int, v int) error {
	switch {
	case p.Topics < 1:
		return apperrors.InvalidParameterf("topic count must be positive, got %d", p.Topics)
	case v < 1:
		return apperrors.InvalidParameterf("vocabulary size must be positive, got %d", v)
	case p.Alpha <= 0 || p.Beta <= 0:
		return apperrors.InvalidParameterf("alpha and beta must be positive, got %v and %v", p.Alpha, p.Beta)
	case p.Iterations < 1:
		return apperrors.InvalidParameterf("iterations must be positive, got %d", p.Iterations)
	case p.BurnIn < 0 || p.SampleLag < 0 || p.ThinInterval < 0:
		return apperrors.InvalidParameterf("burn-in, sample lag and thin interval must not be negative")
	}
	for d, doc := range docs {
		for n, w := range doc {
			if w < 0 || w >= v {
				return apperrors.InvalidParameterf("document %d position %d: term index %d outside [0,%d)", d, n, w, v)
			}
		}
	}
	return nil
}

// Model holds the fitted distributions. Theta[d] is document d's topic
// distribution and Phi[k] is topic k's term distribution.
type Model struct {
	Theta   [][]float64
	Phi     [][]float64
	Samples int
}

// sampler is the Gibbs state for one fit.
type sampler struct {
	p    Params
	docs [][]int
	v    int
	rng  *rand.Rand

	z      [][]int
	nw     [][]int // term x topic
	nd     [][]int // doc x topic
	nwsum  []int
	ndsum  []int
	thetas [][]float64
	phis   [][]float64
	nsamp  int
}

// Fit runs the sampler to completion over docs, each a sequence of term
// indices in [0,v).
func Fit(docs [][]int, v int, p Params) (*Model, error) {
	if err := p.validate(docs, v); err != nil {
		return nil, err
	}
	seed := p.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := &sampler{
		p:    p,
		docs: docs,
		v:    v,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	s.initialize()

	logger := slog.Default().With("component", "lda")
	start := time.Now()
	for i := 0; i < p.Iterations; i++ {
		for m := range s.docs {
			for n := range s.docs[m] {
				s.z[m][n] = s.resample(m, n)
			}
		}
		if p.ThinInterval > 0 && i%p.ThinInterval == 0 {
			logger.Debug("sampling", "iteration", i, "samples", s.nsamp)
		}
		if i >= p.BurnIn && p.SampleLag > 0 && i%p.SampleLag == 0 {
			s.accumulate()
		}
	}
	logger.Debug("fit complete",
		"documents", len(docs),
		"vocabulary", v,
		"topics", p.Topics,
		"samples", s.nsamp,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Model{Theta: s.theta(), Phi: s.phi(), Samples: s.nsamp}, nil
}

func (s *sampler) initialize() {
	k := s.p.Topics
	s.nw = make([][]int, s.v)
	for w := range s.nw {
		s.nw[w] = make([]int, k)
	}
	s.nd = make([][]int, len(s.docs))
	s.nwsum = make([]int, k)
	s.ndsum = make([]int, len(s.docs))
	s.z = make([][]int, len(s.docs))
	for m, doc := range s.docs {
		s.nd[m] = make([]int, k)
		s.z[m] = make([]int, len(doc))
		for n, w := range doc {
			topic := s.rng.IntN(k)
			s.z[m][n] = topic
			s.nw[w][topic]++
			s.nd[m][topic]++
			s.nwsum[topic]++
		}
		s.ndsum[m] = len(doc)
	}
	if s.p.SampleLag > 0 {
		s.thetas = make([][]float64, len(s.docs))
		for m := range s.thetas {
			s.thetas[m] = make([]float64, k)
		}
		s.phis = make([][]float64, k)
		for t := range s.phis {
			s.phis[t] = make([]float64, s.v)
		}
	}
}

// resample draws a new topic for position n of document m from the full
// conditional with the position's own assignment removed.
func (s *sampler) resample(m, n int) int {
	k := s.p.Topics
	w := s.docs[m][n]
	topic := s.z[m][n]
	s.nw[w][topic]--
	s.nd[m][topic]--
	s.nwsum[topic]--
	s.ndsum[m]--

	vBeta := float64(s.v) * s.p.Beta
	kAlpha := float64(k) * s.p.Alpha
	cumulative := make([]float64, k)
	for t := 0; t < k; t++ {
		cumulative[t] = (float64(s.nw[w][t]) + s.p.Beta) / (float64(s.nwsum[t]) + vBeta) *
			(float64(s.nd[m][t]) + s.p.Alpha) / (float64(s.ndsum[m]) + kAlpha)
	}
	floats.CumSum(cumulative, cumulative)
	u := s.rng.Float64() * cumulative[k-1]
	topic = k - 1
	for t := 0; t < k; t++ {
		if cumulative[t] > u {
			topic = t
			break
		}
	}

	s.nw[w][topic]++
	s.nd[m][topic]++
	s.nwsum[topic]++
	s.ndsum[m]++
	return topic
}

func (s *sampler) accumulate() {
	for m, row := range s.currentTheta() {
		floats.Add(s.thetas[m], row)
	}
	for t, row := range s.currentPhi() {
		floats.Add(s.phis[t], row)
	}
	s.nsamp++
}

func (s *sampler) theta() [][]float64 {
	if s.nsamp == 0 {
		return s.currentTheta()
	}
	out := make([][]float64, len(s.thetas))
	for m, row := range s.thetas {
		out[m] = make([]float64, len(row))
		floats.ScaleTo(out[m], 1/float64(s.nsamp), row)
	}
	return out
}

func (s *sampler) phi() [][]float64 {
	if s.nsamp == 0 {
		return s.currentPhi()
	}
	out := make([][]float64, len(s.phis))
	for t, row := range s.phis {
		out[t] = make([]float64, len(row))
		floats.ScaleTo(out[t], 1/float64(s.nsamp), row)
	}
	return out
}

func (s *sampler) currentTheta() [][]float64 {
	k := s.p.Topics
	out := make([][]float64, len(s.docs))
	for m := range s.docs {
		out[m] = make([]float64, k)
		denom := float64(s.ndsum[m]) + float64(k)*s.p.Alpha
		for t := 0; t < k; t++ {
			out[m][t] = (float64(s.nd[m][t]) + s.p.Alpha) / denom
		}
	}
	return out
}

func (s *sampler) currentPhi() [][]float64 {
	out := make([][]float64, s.p.Topics)
	for t := range out {
		out[t] = make([]float64, s.v)
		denom := float64(s.nwsum[t]) + float64(s.v)*s.p.Beta
		for w := 0; w < s.v; w++ {
			out[t][w] = (float64(s.nw[w][t]) + s.p.Beta) / denom
		}
	}
	return out
}

// DominantTopics returns the topics of document doc ordered by descending weight.
func (m *Model) DominantTopics(doc int) []int {
	if doc < 0 || doc >= len(m.Theta) {
		return nil
	}
	weights := make([]float64, len(m.Theta[doc]))
	copy(weights, m.Theta[doc])
	order := make([]int, len(weights))
	floats.Argsort(weights, order)
	reverse(order)
	return order
}

func reverse(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
