package domain

import (
	"fmt"
	"time"
)

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return t, nil
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HasPassed reports whether the event's calendar date is strictly before the calendar
// date of now. Time of day is ignored; the comparison uses now's location.
func (e *Event) HasPassed(now time.Time) (bool, error) {
	date, err := ParseDate(e.Date, now.Location())
	if err != nil {
		return false, err
	}
	return date.Before(startOfDay(now)), nil
}

// completableStatuses are the statuses the lifecycle sweep moves to Completed.
var completableStatuses = []EventStatus{StatusActive, StatusClosed}

// CompletableStatuses returns the statuses eligible for automatic completion.
func CompletableStatuses() []EventStatus {
	out := make([]EventStatus, len(completableStatuses))
	copy(out, completableStatuses)
	return out
}

// ShouldComplete reports whether the lifecycle sweep must complete the event at now.
func (e *Event) ShouldComplete(now time.Time) (bool, error) {
	if e.Status != StatusActive && e.Status != StatusClosed {
		return false, nil
	}
	return e.HasPassed(now)
}

// explicitTransitions lists the status changes an organizer may request.
// Completed is reachable only through the lifecycle sweep; Cancelled is terminal.
var explicitTransitions = map[EventStatus][]EventStatus{
	StatusDraft:     {StatusActive, StatusCancelled},
	StatusActive:    {StatusClosed, StatusCancelled},
	StatusClosed:    {StatusActive, StatusCancelled},
	StatusCompleted: {StatusCancelled},
}

// CanTransition reports whether an organizer may move an event from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to EventStatus) bool {
	if from == to {
		return true
	}
	for _, next := range explicitTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo applies an explicit organizer status change.
func (e *Event) TransitionTo(next EventStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	if !CanTransition(e.Status, next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.Status, next)
	}
	e.Status = next
	return nil
}
