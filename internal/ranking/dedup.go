package ranking

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSimilarityThreshold is the Dice coefficient above which two terms
// are near-duplicates.
const DefaultSimilarityThreshold = 0.75

// Dice returns the Sørensen–Dice coefficient over the character bigrams of
// a and b, ignoring case and whitespace. Strings too short to form a bigram
// score 1 when equal and 0 otherwise.
func Dice(a, b string) float64 {
	a, b = squash(a), squash(b)
	if a == b {
		return 1
	}
	if utf8.RuneCountInString(a) < 2 || utf8.RuneCountInString(b) < 2 {
		return 0
	}
	left := bigrams(a)
	total := len(left)
	matches := 0
	for _, bg := range bigramList(b) {
		total++
		if left[bg] > 0 {
			left[bg]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func bigramList(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	out := make([]string, 0, len(runes)-1)
	for i := 0; i+1 < len(runes); i++ {
		out = append(out, string(runes[i:i+2]))
	}
	return out
}

func bigrams(s string) map[string]int {
	counts := make(map[string]int)
	for _, bg := range bigramList(s) {
		counts[bg]++
	}
	return counts
}

// Deduplicate suppresses near-duplicate terms in one greedy pass over all
// pairs. Of two terms whose similarity exceeds threshold, a candidate term
// loses to a named entity; otherwise the longer text loses, and on equal
// length the later term in text order. Terms already removed are not
// compared again. The result is sorted by text, and running Deduplicate on
// it removes nothing further.
func Deduplicate(terms []Term, threshold float64) []Term {
	sorted := make([]Term, len(terms))
	copy(sorted, terms)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Text != sorted[j].Text {
			return sorted[i].Text < sorted[j].Text
		}
		if sorted[i].Entity != sorted[j].Entity {
			return sorted[i].Entity
		}
		return sorted[i].Type < sorted[j].Type
	})

	removed := make([]bool, len(sorted))
	for i := range sorted {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if removed[j] {
				continue
			}
			if Dice(sorted[i].Text, sorted[j].Text) <= threshold {
				continue
			}
			if loser(sorted[i], sorted[j]) == 0 {
				removed[i] = true
				break
			}
			removed[j] = true
		}
	}

	kept := make([]Term, 0, len(sorted))
	for i, t := range sorted {
		if !removed[i] {
			kept = append(kept, t)
		}
	}
	return kept
}

// loser returns 0 when a should be removed and 1 when b should.
func loser(a, b Term) int {
	if a.Entity != b.Entity {
		if a.Entity {
			return 1
		}
		return 0
	}
	if utf8.RuneCountInString(a.Text) > utf8.RuneCountInString(b.Text) {
		return 0
	}
	return 1
}
