package extract

import (
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/annotation"
)

// NamedEntities groups tokens sharing an NER tag into entity spans. Tokens
// tagged "O" are skipped without closing the open span; only a different
// entity tag or the sentence end closes it.
func NamedEntities(doc annotation.Document) []NamedEntityTerm {
	var terms []NamedEntityTerm
	for _, sentence := range doc.Sentences {
		var (
			stack []annotation.Token
			tag   string
		)
		flush := func() {
			if len(stack) == 0 {
				return
			}
			if text := joinWords(stack, true); text != "" {
				terms = append(terms, NamedEntityTerm{Text: text, EntityType: tag})
			}
			stack = nil
		}
		for _, tok := range sentence.Tokens {
			if tok.NER == "" || tok.NER == annotation.NullTag {
				continue
			}
			if tok.NER != tag {
				flush()
				tag = tok.NER
			}
			stack = append(stack, tok)
		}
		flush()
	}
	return terms
}

// NamedEntityFrequencies aggregates entity spans by serialized key.
func NamedEntityFrequencies(terms []NamedEntityTerm) FrequencyMap {
	freq := make(FrequencyMap, len(terms))
	for _, t := range terms {
		freq.Add(t.Key())
	}
	return freq
}
