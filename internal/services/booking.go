package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventhub/internal/clock"
	"eventhub/internal/domain"

	"github.com/google/uuid"
)

type bookingService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	locker         domain.EventLocker
	publisher      domain.BookingEventPublisher
	clock          clock.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewBookingService creates a BookingService. Stored bookings and cancellations are
// announced to publisher; publish failures are logged and do not fail the request.
func NewBookingService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	locker domain.EventLocker,
	publisher domain.BookingEventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
	timeout time.Duration,
) domain.BookingService {
	return &bookingService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		locker:         locker,
		publisher:      publisher,
		clock:          clk,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// resolveUsername returns the user the caller acts for. Only admins may act for someone else.
func resolveUsername(caller domain.Principal, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == caller.Username {
		return caller.Username, nil
	}
	if !caller.IsAdmin() {
		return "", domain.ErrForbidden
	}
	return requested, nil
}

func (s *bookingService) Register(ctx context.Context, caller domain.Principal, eventID string, req domain.BookingRequest) (*domain.BookingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	username, err := resolveUsername(caller, req.Username)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	if req.PaymentStatus != "" && !req.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidInput, req.PaymentStatus)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	fullName := firstNonEmpty(req.FullName, user.FullName)
	email := firstNonEmpty(req.Email, user.Email)

	var booked domain.Registration
	event, err := mutateEvent(ctx, s.eventRepo, s.locker, eventID, func(event *domain.Event) error {
		if err := event.CanBook(username, req.Quantity); err != nil {
			return err
		}
		booked = domain.Registration{
			Username:      username,
			FullName:      fullName,
			Email:         email,
			RegisteredAt:  s.clock.Now(),
			Quantity:      req.Quantity,
			Tickets:       newTicketIDs(req.Quantity),
			TotalAmount:   totalAmount(event, req.Quantity),
			PaymentStatus: paymentStatus(event, req.PaymentStatus),
		}
		closed, err := event.Book(booked)
		if err != nil {
			return err
		}
		if closed {
			s.logger.InfoContext(ctx, "event reached capacity", "event_id", event.ID, "capacity", event.Capacity)
		}
		event.UpdatedAt = booked.RegisteredAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	evt := domain.NewBookingEvent(domain.BookingCompleted, event, booked, booked.RegisteredAt)
	s.publish(ctx, evt)

	return &domain.BookingResult{
		EventID:        event.ID,
		Status:         event.Status,
		Capacity:       event.Capacity,
		BookedSeats:    event.BookedSeats(),
		RemainingSeats: event.RemainingSeats(),
		Registration:   &booked,
		PointsAwarded:  evt.Delta,
	}, nil
}

func (s *bookingService) Unregister(ctx context.Context, caller domain.Principal, eventID, username string) (*domain.BookingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	username, err := resolveUsername(caller, username)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var removed domain.Registration
	event, err := mutateEvent(ctx, s.eventRepo, s.locker, eventID, func(event *domain.Event) error {
		r, reopened, err := event.CancelBooking(username, now)
		if err != nil {
			return err
		}
		if reopened {
			s.logger.InfoContext(ctx, "event reopened after cancellation", "event_id", event.ID)
		}
		removed = r
		event.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	evt := domain.NewBookingEvent(domain.BookingCancelled, event, removed, now)
	s.publish(ctx, evt)

	return &domain.BookingResult{
		EventID:        event.ID,
		Status:         event.Status,
		Capacity:       event.Capacity,
		BookedSeats:    event.BookedSeats(),
		RemainingSeats: event.RemainingSeats(),
		PointsAwarded:  evt.Delta,
	}, nil
}

func (s *bookingService) TicketOwner(ctx context.Context, caller domain.Principal, eventID, ticketID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, reg, err := s.findTicket(ctx, eventID, ticketID)
	if err != nil {
		return nil, err
	}
	if reg.Username != caller.Username && !canManage(caller, event) {
		return nil, domain.ErrForbidden
	}
	return reg, nil
}

func (s *bookingService) CheckTicket(ctx context.Context, caller domain.Principal, eventID, ticketID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, reg, err := s.findTicket(ctx, eventID, ticketID)
	if err != nil {
		return nil, err
	}
	if !canManage(caller, event) {
		return nil, domain.ErrForbidden
	}
	if event.Status == domain.StatusCancelled {
		return nil, &domain.NotOpenError{Status: event.Status}
	}
	return reg, nil
}

func (s *bookingService) findTicket(ctx context.Context, eventID, ticketID string) (*domain.Event, *domain.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrEventNotFound
		}
		return nil, nil, fmt.Errorf("get event: %w", err)
	}
	for i := range event.Registrations {
		if event.Registrations[i].HasTicket(ticketID) {
			return event, &event.Registrations[i], nil
		}
	}
	return nil, nil, fmt.Errorf("ticket %w", domain.ErrNotFound)
}

func (s *bookingService) publish(ctx context.Context, evt domain.BookingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "publish booking event",
			"type", evt.Type,
			"event_id", evt.EventID,
			"username", evt.Username,
			"err", err,
		)
	}
}

func newTicketIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}

func totalAmount(event *domain.Event, qty int) float64 {
	if !event.IsPaid {
		return 0
	}
	return event.TicketPrice * float64(qty)
}

// paymentStatus is completed for free events; paid events keep the requested status, pending by default.
func paymentStatus(event *domain.Event, requested domain.PaymentStatus) domain.PaymentStatus {
	if !event.IsPaid {
		return domain.PaymentCompleted
	}
	if requested.Valid() {
		return requested
	}
	return domain.PaymentPending
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
