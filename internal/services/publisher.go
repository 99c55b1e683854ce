package services

import (
	"context"
	"errors"

	"eventhub/internal/domain"
)

// multiPublisher fans a booking event out to every consumer. All consumers are tried
// even when one fails; the failures are joined.
type multiPublisher struct {
	publishers []domain.BookingEventPublisher
}

// NewMultiPublisher returns a BookingEventPublisher that forwards to each non-nil publisher in order.
func NewMultiPublisher(publishers ...domain.BookingEventPublisher) domain.BookingEventPublisher {
	m := &multiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

func (m *multiPublisher) Publish(ctx context.Context, evt domain.BookingEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
