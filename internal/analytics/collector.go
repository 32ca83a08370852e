// Package analytics publishes summary and commit events to Kafka and
// aggregates them back into dashboard statistics.
package analytics

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/kafka"
)

// Publisher is the subset of kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Collector struct {
	producer Publisher
	eventCh  chan any
	logger   *slog.Logger
	done     chan struct{}
}

func NewCollector(producer Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event without blocking. Events are dropped when the
// buffer is full. A nil collector ignores events.
func (c *Collector) Track(event any) {
	if c == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// drainRemaining flushes whatever is still buffered in one batch.
func (c *Collector) drainRemaining() {
	var batch []kafka.Event
	defer func() {
		if len(batch) == 0 {
			return
		}
		if err := c.producer.PublishBatch(context.Background(), batch); err != nil {
			c.logger.Error("failed to flush analytics events", "events", len(batch), "error", err)
		}
	}()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			batch = append(batch, kafka.Event{Key: eventKey(event), Value: event})
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.producer.Publish(ctx, kafka.Event{
		Key:   eventKey(event),
		Value: event,
	}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

// eventKey keeps one corpus's events on one partition.
func eventKey(event any) string {
	switch e := event.(type) {
	case SummaryEvent:
		return e.CorpusID
	case CommitEvent:
		return e.CorpusID
	default:
		return "analytics"
	}
}
