package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer"
)

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not a *ValidationError", err)
	}
	return ve.Fields
}

func TestValidateSummaryRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   summarizer.Request
		field string
	}{
		{"valid", summarizer.Request{Text: "we talked about gum", UserID: "alice", Strategies: []string{"tfiudf"}}, ""},
		{"blank text", summarizer.Request{Text: "  \n"}, "text"},
		{"oversized text", summarizer.Request{Text: strings.Repeat("a", maxTextLength+1)}, "text"},
		{"corpus with slash", summarizer.Request{Text: "x", CorpusID: "a/b"}, "corpus_id"},
		{"long user", summarizer.Request{Text: "x", UserID: strings.Repeat("u", maxIDLength+1)}, "user_id"},
		{"negative target", summarizer.Request{Text: "x", TargetCount: -2}, "target_count"},
		{"target above max", summarizer.Request{Text: "x", TargetCount: 101}, "target_count"},
		{"empty reference", summarizer.Request{Text: "x", References: []string{"ok", " "}}, "references"},
		{"too many references", summarizer.Request{Text: "x", References: make([]string, maxReferences+1)}, "references"},
		{"unknown strategy", summarizer.Request{Text: "x", Strategies: []string{"textrank"}}, "strategies"},
		{"tfiudf without user", summarizer.Request{Text: "x", Strategies: []string{"tfiudf"}}, "strategies"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fields(t, ValidateSummaryRequest(&tt.req, 100))
			if tt.field == "" {
				if got != nil {
					t.Fatalf("unexpected errors: %v", got)
				}
				return
			}
			if _, ok := got[tt.field]; !ok || len(got) != 1 {
				t.Fatalf("errors = %v, want only %s", got, tt.field)
			}
		})
	}
}

func TestValidateSummaryRequestNoMax(t *testing.T) {
	if err := ValidateSummaryRequest(&summarizer.Request{Text: "x", TargetCount: 5000}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCommitRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    summarizer.CommitRequest
		fields []string
	}{
		{"valid", summarizer.CommitRequest{Text: "x", CorpusID: "podcasts", IdempotencyKey: "k"}, nil},
		{"missing corpus and text", summarizer.CommitRequest{}, []string{"corpus_id", "text"}},
		{"long key", summarizer.CommitRequest{Text: "x", CorpusID: "c", IdempotencyKey: strings.Repeat("k", 256)}, []string{"idempotency_key"}},
		{"user with space", summarizer.CommitRequest{Text: "x", CorpusID: "c", UserID: "a b"}, []string{"user_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fields(t, ValidateCommitRequest(&tt.req))
			if len(got) != len(tt.fields) {
				t.Fatalf("errors = %v, want %v", got, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := got[f]; !ok {
					t.Errorf("missing error for %s in %v", f, got)
				}
			}
		})
	}
}

func TestValidationErrorMessageIsSorted(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"text": "required", "corpus_id": "bad"}}
	if got, want := err.Error(), "corpus_id:bad; text:required"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
