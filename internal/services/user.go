package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventhub/internal/domain"
)

const (
	defaultHistoryLimit     = 50
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type userService struct {
	userRepo       domain.UserRepository
	eventRepo      domain.EventRepository
	notifier       domain.NotificationService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewUserService creates a UserService. notifier may be nil.
func NewUserService(userRepo domain.UserRepository, eventRepo domain.EventRepository, notifier domain.NotificationService, logger *slog.Logger, timeout time.Duration) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		eventRepo:      eventRepo,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) PointsHistory(ctx context.Context, username string, limit int) ([]domain.PointsEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := s.userRepo.ListPointsHistory(ctx, username, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list points history: %w", err)
	}
	if history == nil {
		history = []domain.PointsEntry{}
	}
	return history, nil
}

func (s *userService) Leaderboard(ctx context.Context, limit int) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	users, err := s.userRepo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}

func (s *userService) ListCollection(ctx context.Context, username string, c domain.Collection) ([]*domain.Event, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, c)
	}
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	ids := user.Favorites
	if c == domain.CollectionPinned {
		ids = user.Pinned
	}
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	events, err := s.eventRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

func (s *userService) AddToCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !c.Valid() {
		return fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, c)
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("failed to get event: %w", err)
	}
	if err := s.userRepo.AddToCollection(ctx, username, c, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to add to %s: %w", c, err)
	}
	return nil
}

func (s *userService) RemoveFromCollection(ctx context.Context, username string, c domain.Collection, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !c.Valid() {
		return fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidInput, c)
	}
	if err := s.userRepo.RemoveFromCollection(ctx, username, c, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to remove from %s: %w", c, err)
	}
	return nil
}

func (s *userService) ListOrganizers(ctx context.Context, status domain.AccountStatus) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	switch status {
	case "":
		status = domain.AccountPending
	case domain.AccountPending, domain.AccountApproved, domain.AccountRejected:
	default:
		return nil, fmt.Errorf("%w: unknown account status %q", domain.ErrInvalidInput, status)
	}
	users, err := s.userRepo.ListByRoleAndStatus(ctx, domain.RoleManager, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizers: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}

func (s *userService) DecideOrganizer(ctx context.Context, username string, approve bool) (*domain.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleManager {
		return nil, fmt.Errorf("%w: %s is not an organizer account", domain.ErrInvalidInput, username)
	}
	status := domain.AccountRejected
	if approve {
		status = domain.AccountApproved
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	if err := s.userRepo.SetAccountStatus(ctx, username, status); err != nil {
		return nil, fmt.Errorf("failed to set account status: %w", err)
	}
	user.AccountStatus = status

	if s.notifier != nil {
		if err := s.notifier.AccountDecided(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "notify account decision", "username", username, "err", err)
		}
	}
	return user, nil
}
