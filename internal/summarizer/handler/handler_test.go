package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/specificity"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

type fakeService struct {
	summarizeErr error
	commitStatus string
	lastSummary  summarizer.Request
	lastCommit   summarizer.CommitRequest
}

func (f *fakeService) Summarize(_ context.Context, req summarizer.Request) (*summarizer.Result, error) {
	f.lastSummary = req
	if f.summarizeErr != nil {
		return nil, f.summarizeErr
	}
	return &summarizer.Result{
		RequestID: "req-1",
		CorpusID:  "podcasts",
		Summaries: []summarizer.Summary{{Strategy: summarizer.StrategyHybrid, Keyphrases: []string{"gum"}}},
	}, nil
}

func (f *fakeService) Commit(_ context.Context, req summarizer.CommitRequest) (*summarizer.CommitResult, error) {
	f.lastCommit = req
	return &summarizer.CommitResult{DocumentID: "doc-1", CorpusID: req.CorpusID, Status: f.commitStatus}, nil
}

type fixedStats struct{}

func (fixedStats) Stats(context.Context) (specificity.Stats, error) {
	return specificity.Stats{CacheHits: 3, CachedTerms: 2}, nil
}

func serve(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestSummarizeOK(t *testing.T) {
	svc := &fakeService{}
	rec := serve(New(svc, nil, 100), http.MethodPost, "/api/v1/summaries",
		`{"text":"we talked about gum","target_count":3,"references":["gum"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.lastSummary.TargetCount != 3 || len(svc.lastSummary.References) != 1 {
		t.Fatalf("service got %+v", svc.lastSummary)
	}
	body := decode(t, rec)
	if body["request_id"] != "req-1" {
		t.Fatalf("body = %v", body)
	}
}

func TestSummarizeInvalidJSON(t *testing.T) {
	rec := serve(New(&fakeService{}, nil, 100), http.MethodPost, "/api/v1/summaries", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSummarizeValidationFields(t *testing.T) {
	rec := serve(New(&fakeService{}, nil, 10), http.MethodPost, "/api/v1/summaries",
		`{"text":"","target_count":11}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	fields, ok := decode(t, rec)["fields"].(map[string]any)
	if !ok {
		t.Fatal("response has no fields object")
	}
	for _, f := range []string{"text", "target_count"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error %s in %v", f, fields)
		}
	}
}

func TestSummarizeErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "oracle timeout",
			err:     apperrors.New(apperrors.ErrOracleTimeout, http.StatusGatewayTimeout, "lookups for 12 terms exceeded 1s"),
			status:  http.StatusGatewayTimeout,
			message: "specificity lookups timed out",
		},
		{
			name:    "bad parameter",
			err:     apperrors.InvalidParameterf("blend weight must be within [0,1], got 2"),
			status:  http.StatusBadRequest,
			message: "blend weight must be within [0,1], got 2",
		},
		{
			name:    "annotator down",
			err:     apperrors.New(apperrors.ErrAnnotation, http.StatusBadGateway, "dial tcp: refused"),
			status:  http.StatusBadGateway,
			message: "summarization failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(New(&fakeService{summarizeErr: tt.err}, nil, 100), http.MethodPost, "/api/v1/summaries", `{"text":"x"}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decode(t, rec)["error"]; got != tt.message {
				t.Fatalf("error = %v, want %q", got, tt.message)
			}
		})
	}
}

func TestCommitTakesCorpusFromPath(t *testing.T) {
	svc := &fakeService{commitStatus: "committed"}
	rec := serve(New(svc, nil, 100), http.MethodPost, "/api/v1/corpora/podcasts/documents",
		`{"text":"episode one","user_id":"alice","idempotency_key":"ep-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if svc.lastCommit.CorpusID != "podcasts" || svc.lastCommit.IdempotencyKey != "ep-1" {
		t.Fatalf("service got %+v", svc.lastCommit)
	}
}

func TestCommitQueued(t *testing.T) {
	rec := serve(New(&fakeService{commitStatus: "queued"}, nil, 100), http.MethodPost,
		"/api/v1/corpora/podcasts/documents", `{"text":"episode one"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
}

func TestCommitRejectsWrongMethod(t *testing.T) {
	rec := serve(New(&fakeService{}, nil, 100), http.MethodGet, "/api/v1/corpora/podcasts/documents", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestSpecificityStats(t *testing.T) {
	rec := serve(New(&fakeService{}, nil, 100), http.MethodGet, "/api/v1/specificity/stats", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status without oracle = %d, want 404", rec.Code)
	}

	rec = serve(New(&fakeService{}, fixedStats{}, 100), http.MethodGet, "/api/v1/specificity/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode(t, rec)["cache_hits"]; got != float64(3) {
		t.Fatalf("cache_hits = %v, want 3", got)
	}
}
