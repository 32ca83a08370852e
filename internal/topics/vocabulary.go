package topics

import apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"

// Vocabulary maps terms to dense indices in insertion order. Indices are
// only meaningful for the run that built the vocabulary.
type Vocabulary struct {
	index map[string]int
	terms []string
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]int)}
}

// Add returns the index of term, assigning the next free index if the term
// is new.
func (v *Vocabulary) Add(term string) int {
	if i, ok := v.index[term]; ok {
		return i
	}
	i := len(v.terms)
	v.index[term] = i
	v.terms = append(v.terms, term)
	return i
}

// Index looks up term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term at index i.
func (v *Vocabulary) Term(i int) (string, error) {
	if i < 0 || i >= len(v.terms) {
		return "", apperrors.InvalidParameterf("vocabulary index %d out of range [0,%d)", i, len(v.terms))
	}
	return v.terms[i], nil
}

func (v *Vocabulary) Size() int {
	return len(v.terms)
}

// Encode converts term documents into index documents, growing the
// vocabulary as needed.
func (v *Vocabulary) Encode(docs [][]string) [][]int {
	encoded := make([][]int, len(docs))
	for d, doc := range docs {
		encoded[d] = make([]int, len(doc))
		for n, term := range doc {
			encoded[d][n] = v.Add(term)
		}
	}
	return encoded
}
