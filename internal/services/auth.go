package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eventhub/internal/clock"
	"eventhub/internal/domain"
)

const minPasswordLen = 8

var (
	emailRegexp    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

type authService struct {
	userRepo    domain.UserRepository
	hasher      domain.PasswordHasher
	tokenIssuer domain.TokenIssuer
	tokenExpiry time.Duration
	clock       clock.Clock
}

// NewAuthService creates an AuthService with the given repository and auth ports.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, tokenIssuer domain.TokenIssuer, tokenExpiry time.Duration, clk clock.Clock) domain.AuthService {
	return &authService{
		userRepo:    userRepo,
		hasher:      hasher,
		tokenIssuer: tokenIssuer,
		tokenExpiry: tokenExpiry,
		clock:       clk,
	}
}

func (s *authService) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	if !usernameRegexp.MatchString(input.Username) {
		return nil, fmt.Errorf("%w: username must be 3-32 letters, digits, '.', '_' or '-'", domain.ErrInvalidInput)
	}
	if !emailRegexp.MatchString(input.Email) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}

	status := domain.AccountApproved
	switch input.Role {
	case "", domain.RoleUser:
		input.Role = domain.RoleUser
	case domain.RoleManager:
		status = domain.AccountPending
	default:
		return nil, fmt.Errorf("%w: role must be user or manager", domain.ErrInvalidInput)
	}

	user, err := s.newUser(input, status)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if user.Role == domain.RoleManager {
		switch user.AccountStatus {
		case domain.AccountPending:
			return "", nil, domain.ErrAccountPending
		case domain.AccountRejected:
			return "", nil, domain.ErrAccountRejected
		}
	}
	token, err := s.tokenIssuer.Issue(user.Username, user.Role, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: admin password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	user, err := s.newUser(domain.RegisterInput{
		Username: username,
		Password: password,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	}, domain.AccountApproved)
	if err != nil {
		return err
	}
	if err := s.userRepo.Create(ctx, user); err != nil && !errors.Is(err, domain.ErrDuplicateUsername) {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (s *authService) newUser(input domain.RegisterInput, status domain.AccountStatus) (*domain.User, error) {
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(salt, input.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &domain.User{
		Username:      input.Username,
		Email:         input.Email,
		FullName:      input.FullName,
		PasswordHash:  hash,
		Salt:          salt,
		Role:          input.Role,
		AccountStatus: status,
		Favorites:     []string{},
		Pinned:        []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
