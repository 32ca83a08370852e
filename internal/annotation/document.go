// Package annotation defines the annotated document model produced by an
// NLP annotator (sentences of tokens carrying word, lemma, part-of-speech
// and named-entity tags) and the Annotator back-ends that produce it.
package annotation

import (
	"context"
	"strings"
)

// NullTag is the NER tag of tokens outside any named entity.
const NullTag = "O"

// Token is one annotated word. Tokens are immutable once produced.
type Token struct {
	Word  string `json:"word"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	NER   string `json:"ner"`
}

// Sentence is an ordered run of tokens.
type Sentence struct {
	Tokens []Token `json:"tokens"`
}

// Text joins the surface words of the sentence with single spaces.
func (s Sentence) Text() string {
	words := make([]string, len(s.Tokens))
	for i, tok := range s.Tokens {
		words[i] = tok.Word
	}
	return strings.Join(words, " ")
}

// Document is an ordered run of sentences; the unit of extraction.
type Document struct {
	Sentences []Sentence `json:"sentences"`
}

// Text joins the document's sentences with single spaces.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.Sentences))
	for _, s := range d.Sentences {
		if text := s.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// TokenCount returns the number of tokens across all sentences.
func (d Document) TokenCount() int {
	n := 0
	for _, s := range d.Sentences {
		n += len(s.Tokens)
	}
	return n
}

// Annotator turns raw text into an annotated Document. Implementations
// return errors wrapping apperrors.ErrAnnotation.
type Annotator interface {
	Annotate(ctx context.Context, text, language string) (Document, error)
}

// IsNoun reports whether pos is a common noun tag (NN, NNS).
func IsNoun(pos string) bool {
	return pos == "NN" || pos == "NNS"
}

// IsProperNoun reports whether pos is a proper noun tag (NNP, NNPS).
func IsProperNoun(pos string) bool {
	return pos == "NNP" || pos == "NNPS"
}

// IsAdjective reports whether pos is the base adjective tag JJ.
func IsAdjective(pos string) bool {
	return pos == "JJ"
}
