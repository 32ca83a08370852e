// Package kafka carries document-commit and analytics events between the
// summarizer, the indexer and the analytics service over segmentio/kafka-go.
// Values are JSON; consumers decode them with DecodeJSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. A returned error leaves the offset
// uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ConsumerStats counts messages seen by a Consumer since it was created.
type ConsumerStats struct {
	Processed   int64
	Failed      int64
	FetchErrors int64
}

// Consumer is a consumer-group member that hands each message to a handler
// and commits the offset once the handler succeeds.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	backoff resilience.RetryConfig
	logger  *slog.Logger

	processed   atomic.Int64
	failed      atomic.Int64
	fetchErrors atomic.Int64
}

// NewConsumer joins cfg.ConsumerGroup on topic. A group with no committed
// offsets starts from the beginning of the topic, so a fresh indexer replays
// every commit into its store.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          topic,
			GroupID:        cfg.ConsumerGroup,
			MinBytes:       1,
			MaxBytes:       10e6,
			StartOffset:    kafka.FirstOffset,
			CommitInterval: 0,
		}),
		handler: handler,
		backoff: resilience.RetryConfig{InitialDelay: 250 * time.Millisecond, MaxDelay: 15 * time.Second},
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", cfg.ConsumerGroup),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("joined consumer group")
	defer c.reader.Close()

	streak := 0
	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			streak++
			c.fetchErrors.Add(1)
			wait := c.backoff.Backoff(streak)
			c.logger.Error("fetch failed", "error", err, "retry_in", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
			}
			continue
		}
		streak = 0
		c.dispatch(ctx, msg)
	}
	c.logger.Info("left consumer group", "processed", c.processed.Load(), "failed", c.failed.Load())
	return nil
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	log := c.logger.With(
		"partition", msg.Partition,
		"offset", msg.Offset,
		"message_id", header(msg, HeaderMessageID),
	)
	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		c.failed.Add(1)
		log.Error("handler failed, offset not committed", "error", err)
		return
	}
	c.processed.Add(1)
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("offset commit failed", "error", err)
		return
	}
	log.Debug("message handled", "bytes", len(msg.Value))
}

// Stats returns the consumer's counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Processed:   c.processed.Load(),
		Failed:      c.failed.Load(),
		FetchErrors: c.fetchErrors.Load(),
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding %T message: %w", v, err)
	}
	return v, nil
}
