package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{Writer: w}
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	evt := domain.BookingEvent{
		Type:       domain.BookingCompleted,
		Username:   "alice",
		Organizer:  "org",
		EventID:    "ev-1",
		Quantity:   2,
		Delta:      20,
		OccurredAt: at,
	}

	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ev-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "BookingCompleted", string(msg.Headers[0].Value))

	var decoded domain.BookingEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt, decoded)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{Writer: &fakeWriter{err: errors.New("no brokers")}}
	err := p.Publish(context.Background(), domain.BookingEvent{EventID: "ev-1"})
	assert.ErrorContains(t, err, "write booking event to kafka")
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "bookings")
	w, ok := p.Writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "bookings", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
