// Package extract turns an annotated document into keyphrase candidates:
// typed candidate terms from a part-of-speech state machine, named-entity
// spans, and meaningful lemmas. Every extractor is a pure function of the
// document and an explicit stopword set.
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/annotation"
)

// TermType classifies a candidate term.
type TermType string

const (
	TypeNoun         TermType = "NOUN"
	TypeCompoundNoun TermType = "COMPOUND_NOUN"
	TypeEntity       TermType = "ENTITY"
)

func (t TermType) valid() bool {
	return t == TypeNoun || t == TypeCompoundNoun || t == TypeEntity
}

// CandidateTerm is a lowercase phrase with its type. Two terms are equal
// when both fields are equal.
type CandidateTerm struct {
	Text string   `json:"text"`
	Type TermType `json:"type"`
}

// Key serializes the term as "TYPE:text".
func (t CandidateTerm) Key() string {
	return string(t.Type) + ":" + t.Text
}

// ParseKey reverses CandidateTerm.Key.
func ParseKey(key string) (CandidateTerm, error) {
	typ, text, ok := strings.Cut(key, ":")
	if !ok || text == "" || !TermType(typ).valid() {
		return CandidateTerm{}, fmt.Errorf("malformed candidate term key %q", key)
	}
	return CandidateTerm{Text: text, Type: TermType(typ)}, nil
}

// NamedEntityTerm is a lowercase entity span with its NER tag.
type NamedEntityTerm struct {
	Text       string `json:"text"`
	EntityType string `json:"entity_type"`
}

// Key serializes the entity as "ENTITY_TYPE:text".
func (t NamedEntityTerm) Key() string {
	return t.EntityType + ":" + t.Text
}

// ParseEntityKey reverses NamedEntityTerm.Key.
func ParseEntityKey(key string) (NamedEntityTerm, error) {
	typ, text, ok := strings.Cut(key, ":")
	if !ok || typ == "" || text == "" {
		return NamedEntityTerm{}, fmt.Errorf("malformed named entity key %q", key)
	}
	return NamedEntityTerm{Text: text, EntityType: typ}, nil
}

// FrequencyMap counts occurrences of serialized terms or lemmas within one
// document. Every value is at least 1.
type FrequencyMap map[string]int

// Add increments the count for key.
func (f FrequencyMap) Add(key string) {
	f[key]++
}

// Keys returns the keys in ascending order.
func (f FrequencyMap) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total returns the sum of all counts.
func (f FrequencyMap) Total() int {
	n := 0
	for _, v := range f {
		n += v
	}
	return n
}

// joinWords joins token surface words with single spaces, lowercasing them
// when lower is set, and trims the result.
func joinWords(tokens []annotation.Token, lower bool) string {
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		if lower {
			words[i] = strings.ToLower(tok.Word)
		} else {
			words[i] = tok.Word
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
