package analytics

import "time"

type EventType string

const (
	EventSummary    EventType = "summary"
	EventDegenerate EventType = "degenerate_summary"
	EventCommit     EventType = "commit_document"
)

// StrategyResult is one competing summary inside a SummaryEvent.
type StrategyResult struct {
	Strategy   string   `json:"strategy"`
	Keyphrases []string `json:"keyphrases"`
	Rouge1     float64  `json:"rouge_1"`
	Rouge2     float64  `json:"rouge_2"`
	LatencyMs  int64    `json:"latency_ms"`
}

type SummaryEvent struct {
	Type       EventType        `json:"type"`
	RequestID  string           `json:"request_id"`
	CorpusID   string           `json:"corpus_id"`
	UserID     string           `json:"user_id,omitempty"`
	Strategies []StrategyResult `json:"strategies"`
	References int              `json:"references"`
	LatencyMs  int64            `json:"latency_ms"`
	Timestamp  time.Time        `json:"timestamp"`
}

type CommitEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	CorpusID   string    `json:"corpus_id"`
	UserID     string    `json:"user_id,omitempty"`
	Lemmas     int       `json:"lemmas"`
	Terms      int       `json:"terms"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// envelope reads only the discriminator of an analytics event.
type envelope struct {
	Type EventType `json:"type"`
}
