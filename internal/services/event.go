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
)

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	points         domain.PointsService
	locker         domain.EventLocker
	clock          clock.Clock
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventService creates an EventService. Ledger-affecting updates are serialised through locker.
func NewEventService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	points domain.PointsService,
	locker domain.EventLocker,
	clk clock.Clock,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		points:         points,
		locker:         locker,
		clock:          clk,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, caller domain.Principal, input domain.EventInput) (*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.requireOrganizer(ctx, caller); err != nil {
		return nil, 0, err
	}

	input = normalizeEventInput(input)
	if input.Status == "" {
		input.Status = domain.StatusActive
	}
	if input.Status != domain.StatusDraft && input.Status != domain.StatusActive {
		return nil, 0, fmt.Errorf("%w: new events must be Draft or Active", domain.ErrInvalidInput)
	}
	if err := validateEventInput(input); err != nil {
		return nil, 0, err
	}

	organizer := caller.Username
	if input.Organizer != "" && input.Organizer != caller.Username {
		if !caller.IsAdmin() {
			return nil, 0, domain.ErrForbidden
		}
		organizer = input.Organizer
	}

	now := s.clock.Now()
	event := &domain.Event{
		Organizer:     organizer,
		Status:        input.Status,
		Registrations: []domain.Registration{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	applyEventInput(event, input)

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, 0, fmt.Errorf("create event: %w", err)
	}

	awarded, err := s.points.AwardEventCreated(ctx, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "award event creation points", "event_id", event.ID, "organizer", organizer, "err", err)
		awarded = 0
	}
	return event, awarded, nil
}

// requireOrganizer allows admins and approved managers.
func (s *eventService) requireOrganizer(ctx context.Context, caller domain.Principal) error {
	if caller.IsAdmin() {
		return nil
	}
	if caller.Role != domain.RoleManager {
		return domain.ErrForbidden
	}
	user, err := s.userRepo.GetByUsername(ctx, caller.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("get user: %w", err)
	}
	if !user.IsApprovedOrganizer() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter, page *domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	events, total, err := s.eventRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, caller domain.Principal, id string, input domain.EventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	input = normalizeEventInput(input)
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	return mutateEvent(ctx, s.eventRepo, s.locker, id, func(event *domain.Event) error {
		if !canManage(caller, event) {
			return domain.ErrForbidden
		}
		if input.Organizer != "" && input.Organizer != event.Organizer {
			if !caller.IsAdmin() {
				return domain.ErrForbidden
			}
			event.Organizer = input.Organizer
		}
		if booked := event.BookedSeats(); input.Capacity < booked {
			return fmt.Errorf("%w: capacity %d is below the %d seats already booked", domain.ErrInvalidInput, input.Capacity, booked)
		}
		if input.Status != "" {
			if err := event.TransitionTo(input.Status); err != nil {
				return err
			}
		}
		applyEventInput(event, input)
		if event.Status == domain.StatusActive && event.BookedSeats() >= event.Capacity {
			event.Status = domain.StatusClosed
		}
		event.UpdatedAt = s.clock.Now()
		return nil
	})
}

func (s *eventService) DeleteEvent(ctx context.Context, caller domain.Principal, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("get event: %w", err)
	}
	if !canManage(caller, event) {
		return domain.ErrForbidden
	}
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if err := s.userRepo.RemoveEventReferences(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "remove event references", "event_id", id, "err", err)
	}
	return nil
}

func (s *eventService) ListMyBookings(ctx context.Context, username string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByRegistrant(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func canManage(caller domain.Principal, event *domain.Event) bool {
	return caller.IsAdmin() || (caller.Username != "" && caller.Username == event.Organizer)
}

func normalizeEventInput(in domain.EventInput) domain.EventInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Venue = strings.TrimSpace(in.Venue)
	in.Category = strings.TrimSpace(in.Category)
	in.Organizer = strings.TrimSpace(in.Organizer)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if !in.IsPaid {
		in.TicketPrice = 0
	}
	return in
}

func validateEventInput(in domain.EventInput) error {
	var problems []string
	if in.Name == "" {
		problems = append(problems, "name is required")
	}
	if _, err := domain.ParseDate(in.Date, time.UTC); err != nil {
		problems = append(problems, "date must be YYYY-MM-DD")
	}
	if in.Capacity <= 0 {
		problems = append(problems, "capacity must be greater than 0")
	}
	if in.TicketPrice < 0 {
		problems = append(problems, "ticketPrice must not be negative")
	}
	if in.IsPaid && in.TicketPrice == 0 {
		problems = append(problems, "ticketPrice is required for paid events")
	}
	if in.Status != "" && !in.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", in.Status))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func applyEventInput(event *domain.Event, in domain.EventInput) {
	event.Name = in.Name
	event.Date = in.Date
	event.Time = in.Time
	event.Venue = in.Venue
	event.Description = in.Description
	event.Category = in.Category
	event.Capacity = in.Capacity
	event.IsPaid = in.IsPaid
	event.TicketPrice = in.TicketPrice
	event.Currency = in.Currency
}
