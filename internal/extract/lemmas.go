package extract

import (
	"regexp"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/stopwords"
)

var alphanumeric = regexp.MustCompile(`^[\p{L}\p{N}]+$`)

// MeaningfulLemmas counts lowercased lemmas of tokens that are alphanumeric
// and are not stopwords by lemma or by surface word.
func MeaningfulLemmas(doc annotation.Document, stop stopwords.Set) FrequencyMap {
	freq := make(FrequencyMap)
	for _, sentence := range doc.Sentences {
		for _, tok := range sentence.Tokens {
			lemma := strings.ToLower(tok.Lemma)
			if !alphanumeric.MatchString(lemma) {
				continue
			}
			if stopwords.IsStopword(lemma, tok.Word, stop) {
				continue
			}
			freq.Add(lemma)
		}
	}
	return freq
}
