package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eventhub/internal/domain"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher streams booking events to a Kafka topic, keyed by event id so that
// all bookings of one event land on the same partition in order.
type Publisher struct {
	Writer messageWriter
}

// NewPublisher returns a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{Writer: writer}
}

var _ domain.BookingEventPublisher = (*Publisher)(nil)

// Publish writes evt as JSON with its type in the "type" header.
func (p *Publisher) Publish(ctx context.Context, evt domain.BookingEvent) error {
	msgBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(evt.EventID),
		Value:   msgBytes,
		Headers: []kafka.Header{{Key: "type", Value: []byte(evt.Type)}},
		Time:    evt.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("write booking event to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.Writer.Close()
}
