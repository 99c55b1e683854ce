package domain

import (
	"fmt"
	"time"
)

// BookedSeats is the sum of quantities across the ledger. It is never cached.
func (e *Event) BookedSeats() int {
	total := 0
	for _, r := range e.Registrations {
		total += r.Quantity
	}
	return total
}

// RemainingSeats is capacity minus booked seats, floored at zero.
func (e *Event) RemainingSeats() int {
	if left := e.Capacity - e.BookedSeats(); left > 0 {
		return left
	}
	return 0
}

// Registration returns the ledger entry of username, if any.
func (e *Event) Registration(username string) (Registration, bool) {
	for _, r := range e.Registrations {
		if r.Username == username {
			return r, true
		}
	}
	return Registration{}, false
}

// CanBook checks whether username may book qty seats right now.
// Checks run in order: duplicate booking, event status, capacity.
func (e *Event) CanBook(username string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if _, ok := e.Registration(username); ok {
		return ErrAlreadyRegistered
	}
	if e.Status != StatusActive {
		return &NotOpenError{Status: e.Status}
	}
	if e.BookedSeats()+qty > e.Capacity {
		return &CapacityError{Remaining: e.RemainingSeats(), Requested: qty}
	}
	return nil
}

// Book appends reg to the ledger and closes the event when it becomes full.
// It reports whether the booking closed the event.
func (e *Event) Book(reg Registration) (closed bool, err error) {
	if reg.Username == "" {
		return false, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if err := e.CanBook(reg.Username, reg.Quantity); err != nil {
		return false, err
	}
	if len(reg.Tickets) != reg.Quantity {
		return false, fmt.Errorf("%w: %d tickets for quantity %d", ErrInvalidInput, len(reg.Tickets), reg.Quantity)
	}
	e.Registrations = append(e.Registrations, reg)
	if e.BookedSeats() == e.Capacity {
		e.Status = StatusClosed
		return true, nil
	}
	return false, nil
}

// CancelBooking removes the ledger entry of username. A Closed event whose date has not
// passed reopens when seats become available again. It reports whether the event reopened.
func (e *Event) CancelBooking(username string, now time.Time) (removed Registration, reopened bool, err error) {
	idx := -1
	for i, r := range e.Registrations {
		if r.Username == username {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Registration{}, false, ErrNotRegistered
	}
	removed = e.Registrations[idx]
	e.Registrations = append(e.Registrations[:idx:idx], e.Registrations[idx+1:]...)

	if e.Status == StatusClosed && e.BookedSeats() < e.Capacity {
		passed, err := e.HasPassed(now)
		if err != nil {
			return removed, false, err
		}
		if !passed {
			e.Status = StatusActive
			reopened = true
		}
	}
	return removed, reopened, nil
}
