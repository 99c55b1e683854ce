package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services, repositories and controllers.
var (
	ErrNotFound           = errors.New("not found")
	ErrEventNotFound      = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already taken")

	ErrEventNotOpen         = errors.New("event is not open for registration")
	ErrAlreadyRegistered    = errors.New("user is already registered for this event")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrNotRegistered        = errors.New("user is not registered for this event")
	ErrInvalidTransition    = errors.New("invalid status transition")

	// ErrConcurrentUpdate is returned by repositories when a versioned write lost a race.
	ErrConcurrentUpdate = errors.New("event was modified concurrently")

	ErrAccountPending  = errors.New("organizer account is pending approval")
	ErrAccountRejected = errors.New("organizer account was rejected")
)

// CapacityError reports how many seats remain when a booking does not fit.
type CapacityError struct {
	Remaining int
	Requested int
}

func (e *CapacityError) Error() string {
	if e.Remaining <= 0 {
		return "event is full"
	}
	seats := "seats"
	if e.Remaining == 1 {
		seats = "seat"
	}
	return fmt.Sprintf("only %d %s remaining, requested %d", e.Remaining, seats, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientCapacity) match.
func (e *CapacityError) Is(target error) bool {
	return target == ErrInsufficientCapacity
}

// NotOpenError names the status that blocked a booking.
type NotOpenError struct {
	Status EventStatus
}

func (e *NotOpenError) Error() string {
	return fmt.Sprintf("event is not open for registration (status: %s)", e.Status)
}

// Is makes errors.Is(err, ErrEventNotOpen) match.
func (e *NotOpenError) Is(target error) bool {
	return target == ErrEventNotOpen
}
