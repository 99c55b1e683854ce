package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventhub/internal/clock"
	"eventhub/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type notificationService struct {
	repo         domain.NotificationRepository
	emailService domain.EmailService
	clock        clock.Clock
	logger       *slog.Logger
}

// NewNotificationService creates a NotificationService. emailService may be nil to disable email.
func NewNotificationService(repo domain.NotificationRepository, emailService domain.EmailService, clk clock.Clock, logger *slog.Logger) domain.NotificationService {
	return &notificationService{
		repo:         repo,
		emailService: emailService,
		clock:        clk,
		logger:       logger,
	}
}

func (s *notificationService) Publish(ctx context.Context, evt domain.BookingEvent) error {
	var errs []error
	switch evt.Type {
	case domain.BookingCompleted:
		errs = append(errs,
			s.post(ctx, evt.Username, domain.NotifyBookingConfirmed, evt.EventID,
				fmt.Sprintf("You booked %d %s for %s.", evt.Quantity, tickets(evt.Quantity), evt.EventName)),
			s.post(ctx, evt.Organizer, domain.NotifyNewBooking, evt.EventID,
				fmt.Sprintf("%s booked %d %s for %s.", evt.Username, evt.Quantity, tickets(evt.Quantity), evt.EventName)),
		)
		if s.emailService != nil && evt.Email != "" {
			err := s.emailService.SendBookingConfirmation(ctx, &domain.BookingConfirmationEmailData{
				Email:     evt.Email,
				FullName:  evt.FullName,
				EventName: evt.EventName,
				EventDate: evt.EventDate,
				Quantity:  evt.Quantity,
				Tickets:   evt.Tickets,
			})
			if err != nil {
				errs = append(errs, err)
			}
		}
	case domain.BookingCancelled:
		errs = append(errs,
			s.post(ctx, evt.Username, domain.NotifyBookingCancelled, evt.EventID,
				fmt.Sprintf("Your booking for %s was cancelled.", evt.EventName)),
			s.post(ctx, evt.Organizer, domain.NotifyBookingWithdrawn, evt.EventID,
				fmt.Sprintf("%s cancelled %d %s for %s.", evt.Username, evt.Quantity, tickets(evt.Quantity), evt.EventName)),
		)
	default:
		return fmt.Errorf("unknown booking event type %q", evt.Type)
	}
	return errors.Join(errs...)
}

func (s *notificationService) EventCompleted(ctx context.Context, ev *domain.Event) error {
	return s.post(ctx, ev.Organizer, domain.NotifyEventCompleted, ev.ID,
		fmt.Sprintf("%s has been marked as completed.", ev.Name))
}

func (s *notificationService) AccountDecided(ctx context.Context, user *domain.User) error {
	kind, msg, approved := domain.NotifyAccountApproved, "Your organizer account has been approved.", true
	if user.AccountStatus == domain.AccountRejected {
		kind, msg, approved = domain.NotifyAccountRejected, "Your organizer account request was rejected.", false
	}
	err := s.post(ctx, user.Username, kind, "", msg)
	if s.emailService != nil && user.Email != "" {
		mailErr := s.emailService.SendOrganizerDecision(ctx, &domain.OrganizerDecisionEmailData{
			Email:    user.Email,
			FullName: user.FullName,
			Approved: approved,
		})
		err = errors.Join(err, mailErr)
	}
	return err
}

func (s *notificationService) List(ctx context.Context, username string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	list, err := s.repo.ListByUsername(ctx, username, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []*domain.Notification{}
	}
	return list, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, username string) error {
	if err := s.repo.MarkRead(ctx, id, username); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("notification %w", domain.ErrNotFound)
		}
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) post(ctx context.Context, username string, kind domain.NotificationKind, eventID, message string) error {
	if username == "" {
		return nil
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		Username:  username,
		Kind:      kind,
		Message:   message,
		EventID:   eventID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", username, err)
	}
	s.logger.DebugContext(ctx, "notification posted", "username", username, "kind", kind)
	return nil
}

func tickets(n int) string {
	if n == 1 {
		return "ticket"
	}
	return "tickets"
}
