// Package corpus records committed documents into the frequency store,
// either in-process or by publishing a commit event for the indexer.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
)

// CommitEvent carries one document's frequencies to the store. It is also
// the payload of the document-commit topic.
type CommitEvent struct {
	DocumentID  string         `json:"document_id"`
	CorpusID    string         `json:"corpus_id"`
	UserID      string         `json:"user_id,omitempty"`
	Lemmas      map[string]int `json:"lemmas"`
	Terms       map[string]int `json:"terms"`
	CommittedAt time.Time      `json:"committed_at"`
}

func (e CommitEvent) Validate() error {
	if e.DocumentID == "" {
		return apperrors.InvalidParameterf("commit event has no document id")
	}
	if e.CorpusID == "" {
		return apperrors.InvalidParameterf("commit event %s has no corpus id", e.DocumentID)
	}
	return nil
}

// Committer applies a commit event.
type Committer interface {
	Commit(ctx context.Context, event CommitEvent) error
}

// StoreCommitter writes commit events straight into a frequency store.
type StoreCommitter struct {
	store   frequency.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewStoreCommitter(store frequency.Store, m *metrics.Metrics) *StoreCommitter {
	return &StoreCommitter{
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "store-committer"),
	}
}

// Commit records the document's lemmas and terms into the corpus scopes and,
// when the event names a user, into that user's scopes. Writes stop at the
// first failure, which is returned as is. Re-committing the same event only
// completes what a failed attempt left out.
func (c *StoreCommitter) Commit(ctx context.Context, event CommitEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	type write struct {
		scope frequency.Scope
		freqs map[string]int
	}
	writes := []write{
		{frequency.CorpusScope(event.CorpusID, frequency.FieldLemma), event.Lemmas},
		{frequency.CorpusScope(event.CorpusID, frequency.FieldTerm), event.Terms},
	}
	if event.UserID != "" {
		writes = append(writes,
			write{frequency.UserScope(event.UserID, frequency.FieldLemma), event.Lemmas},
			write{frequency.UserScope(event.UserID, frequency.FieldTerm), event.Terms},
		)
	}

	for _, w := range writes {
		if err := c.store.RecordDocument(ctx, w.scope, event.DocumentID, w.freqs); err != nil {
			var written int
			var se *frequency.StoreError
			if errors.As(err, &se) {
				written = se.Written
			}
			c.metrics.StoreWrites("ok", written)
			c.metrics.StoreWrites("failed", 1)
			c.logger.Error("commit failed",
				"doc_id", event.DocumentID,
				"scope", w.scope.String(),
				"error", err,
			)
			return fmt.Errorf("committing %s: %w", event.DocumentID, err)
		}
		c.metrics.StoreWrites("ok", len(w.freqs))
		c.metrics.DocumentCommitted(string(w.scope.Kind) + "/" + string(w.scope.Field))
	}
	c.logger.Info("document committed",
		"doc_id", event.DocumentID,
		"corpus", event.CorpusID,
		"user", event.UserID,
		"lemmas", len(event.Lemmas),
		"terms", len(event.Terms),
	)
	return nil
}

// KafkaCommitter publishes commit events for the indexer to apply.
type KafkaCommitter struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewKafkaCommitter(producer *kafka.Producer) *KafkaCommitter {
	return &KafkaCommitter{
		producer: producer,
		logger:   slog.Default().With("component", "kafka-committer"),
	}
}

// Commit publishes the event keyed by corpus, so one corpus's commits stay
// ordered within a partition.
func (c *KafkaCommitter) Commit(ctx context.Context, event CommitEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if err := c.producer.Publish(ctx, kafka.Event{Key: event.CorpusID, Value: event}); err != nil {
		return apperrors.Newf(apperrors.ErrStore, http.StatusServiceUnavailable, "publishing commit %s: %v", event.DocumentID, err)
	}
	c.logger.Debug("commit published",
		"doc_id", event.DocumentID,
		"topic", c.producer.Topic(),
	)
	return nil
}
