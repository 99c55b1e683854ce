package services

import (
	"context"
	"errors"
	"fmt"

	"eventhub/internal/clock"
	"eventhub/internal/domain"
)

type pointsService struct {
	userRepo domain.UserRepository
	clock    clock.Clock
}

// NewPointsService returns the points ledger. It consumes booking events and awards the event creation bonus.
func NewPointsService(userRepo domain.UserRepository, clk clock.Clock) domain.PointsService {
	return &pointsService{userRepo: userRepo, clock: clk}
}

func (s *pointsService) Publish(ctx context.Context, evt domain.BookingEvent) error {
	reason, orgReason, sold := domain.ReasonBooking, domain.ReasonTicketsSold, evt.Quantity
	if evt.Type == domain.BookingCancelled {
		reason, orgReason, sold = domain.ReasonBookingCancel, domain.ReasonTicketsRefunded, -evt.Quantity
	}

	var errs []error
	attendee := domain.PointsEntry{Delta: evt.Delta, Reason: reason, EventID: evt.EventID, CreatedAt: evt.OccurredAt}
	if err := s.userRepo.ApplyPoints(ctx, evt.Username, attendee, domain.UserStats{}); err != nil {
		errs = append(errs, fmt.Errorf("points for %s: %w", evt.Username, err))
	}
	if evt.Organizer != "" {
		organizer := domain.PointsEntry{Delta: evt.OrganizerDelta, Reason: orgReason, EventID: evt.EventID, CreatedAt: evt.OccurredAt}
		if err := s.userRepo.ApplyPoints(ctx, evt.Organizer, organizer, domain.UserStats{TicketsSold: sold}); err != nil {
			errs = append(errs, fmt.Errorf("points for organizer %s: %w", evt.Organizer, err))
		}
	}
	return errors.Join(errs...)
}

func (s *pointsService) AwardEventCreated(ctx context.Context, ev *domain.Event) (int, error) {
	entry := domain.PointsEntry{
		Delta:     domain.EventCreationBonus,
		Reason:    domain.ReasonEventCreated,
		EventID:   ev.ID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.userRepo.ApplyPoints(ctx, ev.Organizer, entry, domain.UserStats{EventsHosted: 1}); err != nil {
		return 0, fmt.Errorf("apply points: %w", err)
	}
	return domain.EventCreationBonus, nil
}
