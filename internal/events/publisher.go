// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher emits order events.
type Publisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order id.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaWriter creates a writer for topic on the comma-separated brokers.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// NewKafkaPublisher creates a publisher on top of writer.
func NewKafkaPublisher(writer messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "order-events").Logger(),
	}
}

// Publish writes event. Events for the same order share a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("event", event.Type).
			Str("order_id", event.OrderID.String()).
			Msg("failed to publish order event")
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug().
		Str("event", event.Type).
		Str("order_id", event.OrderID.String()).
		Msg("order event published")

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
