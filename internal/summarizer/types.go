package summarizer

import (
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/ranking"
)

// Strategy names one competing summarizer.
const (
	StrategyTFIDF          = "tfidf"
	StrategyTFIUDF         = "tfiudf"
	StrategyCandidateTFIDF = "candidate_tfidf"
	StrategyLDA            = "lda"
	StrategyHybrid         = "hybrid"
)

// Strategies lists every strategy in the order results are reported.
var Strategies = []string{
	StrategyTFIDF,
	StrategyTFIUDF,
	StrategyCandidateTFIDF,
	StrategyLDA,
	StrategyHybrid,
}

// Request is the JSON body of POST /api/v1/summaries.
type Request struct {
	Text        string `json:"text"`
	Language    string `json:"language,omitempty"`
	CorpusID    string `json:"corpus_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	TargetCount int    `json:"target_count,omitempty"`
	// References are the user's own summaries the results are scored against.
	References []string `json:"references,omitempty"`
	// Strategies restricts which summarizers run. Empty runs all that apply.
	Strategies []string `json:"strategies,omitempty"`
}

type Summary struct {
	Strategy   string   `json:"strategy"`
	Keyphrases []string `json:"keyphrases"`
	// Ranked carries per-term scores for the hybrid strategy.
	Ranked    []ranking.Keyphrase `json:"ranked,omitempty"`
	Scores    evaluation.Score    `json:"scores"`
	LatencyMs int64               `json:"latency_ms"`
}

type Result struct {
	RequestID  string    `json:"request_id"`
	CorpusID   string    `json:"corpus_id"`
	UserID     string    `json:"user_id,omitempty"`
	Tokens     int       `json:"tokens"`
	Degenerate bool      `json:"degenerate"`
	Summaries  []Summary `json:"summaries"`
	LatencyMs  int64     `json:"latency_ms"`
}

// CommitRequest is the JSON body of POST /api/v1/corpora/{corpus}/documents.
// CorpusID comes from the path.
type CommitRequest struct {
	Text           string `json:"text"`
	Language       string `json:"language,omitempty"`
	CorpusID       string `json:"-"`
	UserID         string `json:"user_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type CommitResult struct {
	DocumentID string `json:"document_id"`
	CorpusID   string `json:"corpus_id"`
	UserID     string `json:"user_id,omitempty"`
	// Status is "committed" for in-process writes and "queued" when the
	// commit was handed to the indexer.
	Status string `json:"status"`
	Lemmas int    `json:"lemmas"`
	Terms  int    `json:"terms"`
}
