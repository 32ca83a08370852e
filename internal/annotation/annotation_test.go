package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
)

const coreNLPFixture = `{
  "sentences": [
    {"tokens": [
      {"word": "Ada", "lemma": "Ada", "pos": "NNP", "ner": "PERSON"},
      {"word": "Lovelace", "lemma": "Lovelace", "pos": "NNP", "ner": "PERSON"},
      {"word": "wrote", "lemma": "write", "pos": "VBD", "ner": "O"},
      {"word": "notes", "lemma": "note", "pos": "NNS"}
    ]},
    {"tokens": [
      {"word": "Engines", "lemma": "engine", "pos": "NNS", "ner": "O"}
    ]}
  ]
}`

func newTestCoreNLP(t *testing.T, h http.HandlerFunc) *CoreNLPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCoreNLPClient(config.AnnotatorConfig{URL: srv.URL + "/", Timeout: 5 * time.Second}, nil)
}

func TestCoreNLPAnnotate(t *testing.T) {
	var gotBody string
	var gotProps map[string]string
	client := newTestCoreNLP(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		json.Unmarshal([]byte(r.URL.Query().Get("properties")), &gotProps)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, coreNLPFixture)
	})

	doc, err := client.Annotate(context.Background(), "Ada Lovelace wrote notes. Engines", "en")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if gotBody != "Ada Lovelace wrote notes. Engines" {
		t.Errorf("server received %q", gotBody)
	}
	if gotProps["annotators"] != coreNLPAnnotators || gotProps["pipelineLanguage"] != "en" {
		t.Errorf("unexpected properties: %v", gotProps)
	}
	if len(doc.Sentences) != 2 || doc.TokenCount() != 5 {
		t.Fatalf("unexpected document shape: %+v", doc)
	}
	notes := doc.Sentences[0].Tokens[3]
	if notes.Lemma != "note" || notes.NER != NullTag {
		t.Fatalf("missing NER must default to %q, got %+v", NullTag, notes)
	}
	if doc.Text() != "Ada Lovelace wrote notes Engines" {
		t.Fatalf("Text() = %q", doc.Text())
	}
}

func TestCoreNLPServerError(t *testing.T) {
	client := newTestCoreNLP(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pipeline exploded", http.StatusInternalServerError)
	})

	_, err := client.Annotate(context.Background(), "some text", "en")
	if !errors.Is(err, apperrors.ErrAnnotation) {
		t.Fatalf("expected ErrAnnotation, got %v", err)
	}
	if apperrors.HTTPStatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", apperrors.HTTPStatusCode(err))
	}
}

func TestCoreNLPEmptyTextSkipsServer(t *testing.T) {
	var called atomic.Bool
	client := newTestCoreNLP(t, func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	})
	doc, err := client.Annotate(context.Background(), "   ", "en")
	if err != nil || len(doc.Sentences) != 0 || called.Load() {
		t.Fatalf("empty text: doc=%+v err=%v called=%v", doc, err, called.Load())
	}
}

func TestCoreNLPPing(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)
	client := newTestCoreNLP(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ready" || !ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	ready.Store(false)
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected Ping to fail when not ready")
	}
}

func TestEntityTag(t *testing.T) {
	tests := map[string]string{
		"":         NullTag,
		"O":        NullTag,
		"B-PERSON": "PERSON",
		"I-GPE":    "GPE",
		"ORG":      "ORG",
	}
	for in, want := range tests {
		if got := entityTag(in); got != want {
			t.Errorf("entityTag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProseAnnotator(t *testing.T) {
	ctx := context.Background()
	for _, stemmer := range []string{"snowball", "porter"} {
		t.Run(stemmer, func(t *testing.T) {
			a := NewProseAnnotator(stemmer)
			doc, err := a.Annotate(ctx, "Maria keeps bees on the roof. The bees make honey.", "en")
			if err != nil {
				t.Fatalf("Annotate: %v", err)
			}
			if len(doc.Sentences) == 0 || doc.TokenCount() == 0 {
				t.Fatalf("expected tokens, got %+v", doc)
			}
			found := false
			for _, s := range doc.Sentences {
				for _, tok := range s.Tokens {
					if tok.POS == "" || tok.NER == "" {
						t.Errorf("token missing tags: %+v", tok)
					}
					if tok.Word == "bees" {
						found = true
						if tok.Lemma != "bee" {
							t.Errorf("lemma of bees = %q, want bee", tok.Lemma)
						}
					}
				}
			}
			if !found {
				t.Fatal("token bees not found")
			}
		})
	}
}

func TestProseRejectsOtherLanguages(t *testing.T) {
	_, err := NewProseAnnotator("snowball").Annotate(context.Background(), "hola mundo", "es")
	if !errors.Is(err, apperrors.ErrAnnotation) {
		t.Fatalf("expected ErrAnnotation, got %v", err)
	}
	doc, err := NewProseAnnotator("snowball").Annotate(context.Background(), "", "en-US")
	if err != nil || doc.TokenCount() != 0 {
		t.Fatalf("empty text: %+v %v", doc, err)
	}
}
