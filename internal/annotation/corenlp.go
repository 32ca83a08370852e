package annotation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
)

const coreNLPAnnotators = "tokenize,ssplit,pos,lemma,ner"

// CoreNLPClient annotates text through a Stanford CoreNLP server.
type CoreNLPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

type coreNLPResponse struct {
	Sentences []struct {
		Tokens []struct {
			Word  string `json:"word"`
			Lemma string `json:"lemma"`
			POS   string `json:"pos"`
			NER   string `json:"ner"`
		} `json:"tokens"`
	} `json:"sentences"`
}

// NewCoreNLPClient creates a client for the server at cfg.URL.
func NewCoreNLPClient(cfg config.AnnotatorConfig, m *metrics.Metrics) *CoreNLPClient {
	return &CoreNLPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		timeout: cfg.Timeout,
		http:    &http.Client{},
		breaker: resilience.NewCircuitBreaker("corenlp", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange: func(name string, state resilience.State) {
				m.SetCircuitState(name, int(state))
			},
		}),
		logger: slog.Default().With("component", "corenlp-annotator"),
	}
}

// Annotate posts text to the server and converts its JSON output.
func (c *CoreNLPClient) Annotate(ctx context.Context, text, language string) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, nil
	}
	var doc Document
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.timeout, "corenlp annotate", func(ctx context.Context) error {
			var err error
			doc, err = c.annotate(ctx, text, language)
			return err
		})
	})
	if err != nil {
		c.logger.Error("annotation failed", "error", err, "text_len", len(text))
		return Document{}, apperrors.Newf(apperrors.ErrAnnotation, http.StatusBadGateway, "corenlp: %v", err)
	}
	c.logger.Debug("document annotated",
		"sentences", len(doc.Sentences),
		"tokens", doc.TokenCount(),
	)
	return doc, nil
}

func (c *CoreNLPClient) annotate(ctx context.Context, text, language string) (Document, error) {
	props, err := json.Marshal(map[string]string{
		"annotators":       coreNLPAnnotators,
		"outputFormat":     "json",
		"pipelineLanguage": language,
	})
	if err != nil {
		return Document{}, fmt.Errorf("encoding properties: %w", err)
	}
	endpoint := c.baseURL + "/?properties=" + url.QueryEscape(string(props))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return Document{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("calling %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Document{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload coreNLPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Document{}, fmt.Errorf("decoding response: %w", err)
	}
	doc := Document{Sentences: make([]Sentence, 0, len(payload.Sentences))}
	for _, s := range payload.Sentences {
		sentence := Sentence{Tokens: make([]Token, 0, len(s.Tokens))}
		for _, t := range s.Tokens {
			ner := t.NER
			if ner == "" {
				ner = NullTag
			}
			sentence.Tokens = append(sentence.Tokens, Token{
				Word:  t.Word,
				Lemma: t.Lemma,
				POS:   t.POS,
				NER:   ner,
			})
		}
		doc.Sentences = append(doc.Sentences, sentence)
	}
	return doc, nil
}

// Ping checks that the server answers at all.
func (c *CoreNLPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("corenlp not ready: status %d", resp.StatusCode)
	}
	return nil
}
