// Package evaluation scores keyphrase summaries against reference summaries
// with ROUGE-N n-gram overlap.
package evaluation

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NGrams returns every run of n consecutive tokens. It returns nil when n is
// not positive or exceeds the token count.
func NGrams(tokens []string, n int) [][]string {
	if n < 1 || n > len(tokens) {
		return nil
	}
	grams := make([][]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, tokens[i:i+n:i+n])
	}
	return grams
}

// RougeN is the fraction of the candidate's n-grams found in the reference.
// Matches are clipped by the reference count, so a repeated candidate n-gram
// only matches as often as the reference holds it. An empty candidate
// scores zero.
func RougeN(reference, candidate []string, n int) float64 {
	candGrams := NGrams(candidate, n)
	if len(candGrams) == 0 {
		return 0
	}
	available := make(map[string]int)
	for _, g := range NGrams(reference, n) {
		available[gramKey(g)]++
	}
	matched := 0
	for _, g := range candGrams {
		k := gramKey(g)
		if available[k] > 0 {
			available[k]--
			matched++
		}
	}
	return float64(matched) / float64(len(candGrams))
}

func gramKey(g []string) string {
	return strings.Join(g, "\x00")
}

// Tokenize NFC-normalizes and lowercases text, then splits it on anything
// that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Score holds ROUGE-1 and ROUGE-2 for one summary.
type Score struct {
	Rouge1 float64 `json:"rouge_1"`
	Rouge2 float64 `json:"rouge_2"`
}

// ScoreSummary tokenizes the keyphrases of summary and averages ROUGE-1 and
// ROUGE-2 over the references. With no references the score is zero.
func ScoreSummary(summary []string, references []string) Score {
	if len(references) == 0 {
		return Score{}
	}
	candidate := Tokenize(strings.Join(summary, " "))
	var total Score
	for _, ref := range references {
		tokens := Tokenize(ref)
		total.Rouge1 += RougeN(tokens, candidate, 1)
		total.Rouge2 += RougeN(tokens, candidate, 2)
	}
	n := float64(len(references))
	return Score{Rouge1: total.Rouge1 / n, Rouge2: total.Rouge2 / n}
}
