// Package kafka streams form outcomes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends one message per outcome, keyed by session id so a
// conversation's outcomes stay ordered within a partition.
type Publisher struct {
	writer MessageWriter
	logger *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) *Publisher {
	return NewFromWriter(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}, opts...)
}

// NewFromWriter wraps an existing writer.
func NewFromWriter(w MessageWriter, opts ...Option) *Publisher {
	p := &Publisher{writer: w, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends outcome as JSON.
func (p *Publisher) Publish(ctx context.Context, outcome domain.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(outcome.SessionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "form", Value: []byte(outcome.Form)},
			{Key: "status", Value: []byte(outcome.Status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}

	p.logger.DebugContext(ctx, "outcome published", "session_id", outcome.SessionID, "action", outcome.Action)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
