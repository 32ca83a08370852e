// Package consumer reads document-commit events from Kafka and applies them
// to the frequency store.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
)

// CommitConsumer wraps a Kafka consumer to drive store commits.
type CommitConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *CommitConsumer {
	return &CommitConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "commit-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (cc *CommitConsumer) Start(ctx context.Context) error {
	cc.logger.Info("commit consumer starting")
	return cc.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that applies each commit event
// through committer. Store failures retry the whole document; malformed
// events are logged and skipped so they do not block the partition.
func HandleMessage(committer corpus.Committer, retry resilience.RetryConfig) kafka.MessageHandler {
	logger := slog.Default().With("component", "commit-consumer")
	if retry.Retryable == nil {
		retry.Retryable = func(err error) bool {
			return errors.Is(err, apperrors.ErrStore)
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[corpus.CommitEvent](value)
		if err != nil {
			logger.Error("failed to decode commit event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := event.Validate(); err != nil {
			logger.Error("dropping invalid commit event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("processing commit event",
			"doc_id", event.DocumentID,
			"corpus", event.CorpusID,
		)

		err = resilience.Retry(ctx, "commit "+event.DocumentID, retry, func() error {
			return committer.Commit(ctx, event)
		})
		if err != nil {
			return fmt.Errorf("applying commit %s: %w", event.DocumentID, err)
		}
		logger.Info("commit applied",
			"doc_id", event.DocumentID,
			"corpus", event.CorpusID,
		)
		return nil
	}
}
