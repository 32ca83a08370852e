package topics

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

// LabelOptions controls how topic terms become a keyphrase list.
type LabelOptions struct {
	// TermsPerTopic is how many of a topic's most probable terms are taken.
	TermsPerTopic int
	// Length is the number of labels wanted. Zero keeps every label.
	Length int
	// TopicOrder visits topics in this order. Nil visits 0..K-1.
	TopicOrder []int
	// Keep, when set, skips terms it rejects without consuming a slot.
	Keep func(term string) bool
	// Rand shuffles oversupplied labels before truncation. Nil uses the
	// global source.
	Rand *rand.Rand
}

// TopTerms returns the indices of topic k's n most probable terms.
func (m *Model) TopTerms(k, n int) []int {
	if k < 0 || k >= len(m.Phi) {
		return nil
	}
	weights := make([]float64, len(m.Phi[k]))
	copy(weights, m.Phi[k])
	order := make([]int, len(weights))
	floats.Argsort(weights, order)
	reverse(order)
	if n > 0 && len(order) > n {
		order = order[:n]
	}
	return order
}

// Labels concatenates the top terms of each topic, without duplicates, and
// shuffle-truncates the result when it exceeds opts.Length.
func Labels(m *Model, vocab *Vocabulary, opts LabelOptions) ([]string, error) {
	if opts.TermsPerTopic < 1 {
		return nil, apperrors.InvalidParameterf("terms per topic must be positive, got %d", opts.TermsPerTopic)
	}
	order := opts.TopicOrder
	if order == nil {
		order = make([]int, len(m.Phi))
		for k := range order {
			order[k] = k
		}
	}

	seen := make(map[string]struct{})
	var labels []string
	for _, k := range order {
		if k < 0 || k >= len(m.Phi) {
			return nil, apperrors.InvalidParameterf("topic %d out of range [0,%d)", k, len(m.Phi))
		}
		taken := 0
		for _, w := range m.TopTerms(k, 0) {
			if taken == opts.TermsPerTopic {
				break
			}
			term, err := vocab.Term(w)
			if err != nil {
				return nil, err
			}
			if opts.Keep != nil && !opts.Keep(term) {
				continue
			}
			taken++
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			labels = append(labels, term)
		}
	}

	if opts.Length > 0 && len(labels) > opts.Length {
		shuffle := rand.Shuffle
		if opts.Rand != nil {
			shuffle = opts.Rand.Shuffle
		}
		shuffle(len(labels), func(i, j int) {
			labels[i], labels[j] = labels[j], labels[i]
		})
		labels = labels[:opts.Length]
	}
	return labels, nil
}
