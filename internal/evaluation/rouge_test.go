package evaluation

import (
	"math"
	"testing"
)

func TestNGrams(t *testing.T) {
	grams := NGrams([]string{"hello", "there", "sir"}, 2)
	if len(grams) != 2 {
		t.Fatalf("got %d bigrams, want 2", len(grams))
	}
	want := [][]string{{"hello", "there"}, {"there", "sir"}}
	for i, w := range want {
		if grams[i][0] != w[0] || grams[i][1] != w[1] {
			t.Errorf("bigram %d = %v, want %v", i, grams[i], w)
		}
	}

	if NGrams([]string{"a"}, 2) != nil {
		t.Error("n larger than input should yield nil")
	}
	if NGrams([]string{"a"}, 0) != nil {
		t.Error("n = 0 should yield nil")
	}
}

func TestNGramsDoNotAlias(t *testing.T) {
	grams := NGrams([]string{"a", "b", "c"}, 2)
	grams[0] = append(grams[0], "x")
	if grams[1][1] != "c" {
		t.Fatalf("appending to one n-gram changed another: %v", grams)
	}
}

func TestRougeN(t *testing.T) {
	candidate := []string{"the", "cat", "was", "under", "the", "bed"}
	reference := []string{"the", "cat", "was", "found", "under", "the", "bed"}

	tests := []struct {
		name string
		ref  []string
		cand []string
		n    int
		want float64
	}{
		{"bigram overlap", reference, candidate, 2, 0.8},
		{"unigram overlap", reference, candidate, 1, 1},
		{"identical", reference, reference, 2, 1},
		{"empty candidate", reference, nil, 2, 0},
		{"no overlap", reference, []string{"dog", "ran"}, 1, 0},
		{"clipped repeats", []string{"the", "cat"}, []string{"the", "the", "the", "cat"}, 1, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RougeN(tc.ref, tc.cand, tc.n)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("RougeN = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Minty gum, John-Smith's HAT!")
	want := []string{"minty", "gum", "john", "smith", "s", "hat"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v, want %v", got, want)
		}
	}
}

func TestScoreSummary(t *testing.T) {
	refs := []string{"minty gum stick", "gold medal"}
	score := ScoreSummary([]string{"minty gum", "gold medal"}, refs)
	// candidate: minty gum gold medal
	// ref 1: unigrams 2/4, bigrams 1/3; ref 2: unigrams 2/4, bigrams 1/3
	if math.Abs(score.Rouge1-0.5) > 1e-9 {
		t.Errorf("Rouge1 = %v, want 0.5", score.Rouge1)
	}
	if math.Abs(score.Rouge2-1.0/3) > 1e-9 {
		t.Errorf("Rouge2 = %v, want 1/3", score.Rouge2)
	}
	if got := ScoreSummary([]string{"x"}, nil); got != (Score{}) {
		t.Errorf("no references should score zero, got %+v", got)
	}
}
