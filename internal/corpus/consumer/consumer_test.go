package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
)

type flakyCommitter struct {
	failures int
	err      error
	calls    int
	last     corpus.CommitEvent
}

func (f *flakyCommitter) Commit(_ context.Context, ev corpus.CommitEvent) error {
	f.calls++
	f.last = ev
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func encode(t *testing.T, ev corpus.CommitEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleMessageRetriesStoreErrors(t *testing.T) {
	c := &flakyCommitter{failures: 2, err: apperrors.New(apperrors.ErrStore, 503, "unavailable")}
	h := HandleMessage(c, fastRetry())

	ev := corpus.CommitEvent{DocumentID: "d1", CorpusID: "c1", Lemmas: map[string]int{"gum": 1}}
	if err := h(context.Background(), []byte("c1"), encode(t, ev)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if c.calls != 3 {
		t.Fatalf("committer called %d times, want 3", c.calls)
	}
	if c.last.Lemmas["gum"] != 1 {
		t.Fatalf("decoded event = %+v", c.last)
	}
}

func TestHandleMessageDoesNotRetryOtherErrors(t *testing.T) {
	c := &flakyCommitter{failures: 5, err: errors.New("bad data")}
	h := HandleMessage(c, fastRetry())

	ev := corpus.CommitEvent{DocumentID: "d1", CorpusID: "c1"}
	if err := h(context.Background(), nil, encode(t, ev)); err == nil {
		t.Fatal("expected error")
	}
	if c.calls != 1 {
		t.Fatalf("committer called %d times, want 1", c.calls)
	}
}

func TestHandleMessageSkipsMalformed(t *testing.T) {
	c := &flakyCommitter{}
	h := HandleMessage(c, fastRetry())
	if err := h(context.Background(), nil, []byte("{not json")); err != nil {
		t.Fatalf("malformed message should be skipped, got %v", err)
	}
	if err := h(context.Background(), nil, []byte(`{"corpus_id":"c"}`)); err != nil {
		t.Fatalf("invalid event should be skipped, got %v", err)
	}
	if c.calls != 0 {
		t.Fatalf("committer called %d times, want 0", c.calls)
	}
}
