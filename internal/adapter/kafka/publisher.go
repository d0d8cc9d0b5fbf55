// Package kafka publishes advice events for downstream consumers such as
// SMS alert senders and dashboards.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
)

// Publisher produces advice events to a Kafka topic.
// It implements domain.AdvicePublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the advice topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes one advice event. The field ID keys the
// message so all advice for a field lands on one partition, in order.
func (p *Publisher) Publish(ctx context.Context, event domain.AdviceEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AdviceEvent into a Kafka message.
func serializeToMessage(event domain.AdviceEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize advice event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.FieldID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "policy", Value: []byte(event.Policy)},
			{Key: "tier", Value: []byte(event.Tier)},
			{Key: "issued_at", Value: []byte(event.IssuedAt.Format(time.RFC3339))},
		},
	}, nil
}
