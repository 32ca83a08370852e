package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/idgen"
	"github.com/segmentio/kafka-go"
)

// Header names set on every published message.
const (
	HeaderMessageID   = "message-id"
	HeaderContentType = "content-type"
)

// Event is one message to publish. Events with the same Key land on the same
// partition; the summarizer keys by corpus so a corpus's commits apply in
// order.
type Event struct {
	Key   string
	Value any
}

// Producer writes JSON events to a single topic and waits for every in-sync
// replica to acknowledge.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Topic() string {
	return p.writer.Topic
}

// Publish writes one event synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch encodes every event before writing any, so an unencodable
// event fails the whole batch without a partial write.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(events))
	size := 0
	for i, event := range events {
		msg, err := encode(event)
		if err != nil {
			return err
		}
		msgs[i] = msg
		size += len(msg.Value)
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("write failed", "messages", len(msgs), "error", err)
		return fmt.Errorf("writing %d message(s) to %s: %w", len(msgs), p.writer.Topic, err)
	}
	p.logger.Debug("written",
		"messages", len(msgs),
		"bytes", size,
		"took", time.Since(start),
	)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %T event: %w", event.Value, err)
	}
	return kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderMessageID, Value: []byte(idgen.New())},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}, nil
}
