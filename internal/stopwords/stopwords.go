// Package stopwords holds stopword sets and the predicate used by every
// extractor. Sets are plain values passed explicitly; there is no package
// level mutable state.
package stopwords

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set is a lowercase stopword set.
type Set map[string]struct{}

// New builds a Set from words, lowercasing and trimming each one.
func New(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
	return s
}

// Contains reports whether word is in the set, ignoring case.
func (s Set) Contains(word string) bool {
	if word == "" {
		return false
	}
	_, ok := s[strings.ToLower(word)]
	return ok
}

// Union returns a new set holding the words of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for w := range s {
		out[w] = struct{}{}
	}
	for w := range other {
		out[w] = struct{}{}
	}
	return out
}

// IsStopword reports whether a token is a stopword by its lemma or its
// surface word.
func IsStopword(lemma, word string, set Set) bool {
	return set.Contains(lemma) || set.Contains(word)
}

// fileFormat accepts either a bare YAML list or a mapping with a "words" key.
type fileFormat struct {
	Words []string `yaml:"words"`
}

// LoadFile reads a YAML stopword list. When extend is true the built-in
// English set is included.
func LoadFile(path string, extend bool) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stopword file %s: %w", path, err)
	}
	var words []string
	if err := yaml.Unmarshal(data, &words); err != nil {
		var f fileFormat
		if err2 := yaml.Unmarshal(data, &f); err2 != nil {
			return nil, fmt.Errorf("parsing stopword file %s: %w", path, err)
		}
		words = f.Words
	}
	set := New(words...)
	if extend {
		set = set.Union(Default())
	}
	return set, nil
}

// Default returns the built-in English stopword set, extended with
// conversational fillers common in transcripts.
func Default() Set {
	return New(english...)
}

var english = []string{
	"a", "about", "above", "after", "again", "against", "ain", "all", "am", "an",
	"and", "any", "are", "aren", "aren't", "as", "at", "be", "because", "been",
	"before", "being", "below", "between", "both", "but", "by", "can", "couldn",
	"couldn't", "d", "did", "didn", "didn't", "do", "does", "doesn", "doesn't",
	"doing", "don", "don't", "down", "during", "each", "few", "for", "from",
	"further", "had", "hadn", "hadn't", "has", "hasn", "hasn't", "have", "haven",
	"haven't", "having", "he", "her", "here", "hers", "herself", "him", "himself",
	"his", "how", "i", "if", "in", "into", "is", "isn", "isn't", "it", "it's",
	"its", "itself", "just", "ll", "m", "ma", "me", "mightn", "mightn't", "more",
	"most", "mustn", "mustn't", "my", "myself", "needn", "needn't", "no", "nor",
	"not", "now", "o", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "ourselves", "out", "over", "own", "re", "s", "same", "shan",
	"shan't", "she", "she's", "should", "should've", "shouldn", "shouldn't", "so",
	"some", "such", "t", "than", "that", "that'll", "the", "their", "theirs",
	"them", "themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "ve", "very", "was", "wasn",
	"wasn't", "we", "were", "weren", "weren't", "what", "when", "where", "which",
	"while", "who", "whom", "why", "will", "with", "won", "won't", "wouldn",
	"wouldn't", "y", "you", "you'd", "you'll", "you're", "you've", "your", "yours",
	"yourself", "yourselves", "'s", "n't", "'m", "'re", "'ve", "'ll", "'d",
	// transcript fillers
	"uh", "um", "umm", "hmm", "yeah", "okay", "ok", "like", "gonna", "wanna",
	"kinda", "sorta", "yep", "nope", "mhm", "oh", "ah", "well",
}
