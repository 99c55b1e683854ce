package domain

import (
	"context"
	"time"
)

// Points awarded by the booking ledger.
const (
	PointsPerTicket          = 10
	OrganizerPointsPerTicket = 5
	EventCreationBonus       = 50
)

// BookingEventType distinguishes booking notifications.
type BookingEventType string

const (
	BookingCompleted BookingEventType = "BookingCompleted"
	BookingCancelled BookingEventType = "BookingCancelled"
)

// BookingEvent is emitted after a booking or cancellation has been stored.
// Delta and OrganizerDelta are the points changes for the attendee and the organizer.
// swagger:model BookingEvent
type BookingEvent struct {
	Type           BookingEventType `json:"type"`
	Username       string           `json:"username"`
	Email          string           `json:"email,omitempty"`
	FullName       string           `json:"fullName,omitempty"`
	Organizer      string           `json:"organizer"`
	EventID        string           `json:"eventId"`
	EventName      string           `json:"eventName"`
	EventDate      string           `json:"eventDate"`
	Quantity       int              `json:"quantity"`
	Tickets        []string         `json:"tickets,omitempty"`
	Delta          int              `json:"delta"`
	OrganizerDelta int              `json:"organizerDelta"`
	OccurredAt     time.Time        `json:"occurredAt"`
}

// NewBookingEvent builds the event for a stored booking or cancellation of reg.
func NewBookingEvent(kind BookingEventType, ev *Event, reg Registration, at time.Time) BookingEvent {
	delta := reg.Quantity * PointsPerTicket
	orgDelta := reg.Quantity * OrganizerPointsPerTicket
	if kind == BookingCancelled {
		delta, orgDelta = -delta, -orgDelta
	}
	return BookingEvent{
		Type:           kind,
		Username:       reg.Username,
		Email:          reg.Email,
		FullName:       reg.FullName,
		Organizer:      ev.Organizer,
		EventID:        ev.ID,
		EventName:      ev.Name,
		EventDate:      ev.Date,
		Quantity:       reg.Quantity,
		Tickets:        reg.Tickets,
		Delta:          delta,
		OrganizerDelta: orgDelta,
		OccurredAt:     at,
	}
}

// BookingEventPublisher consumes booking events (points ledger, notifications, message bus).
type BookingEventPublisher interface {
	Publish(ctx context.Context, evt BookingEvent) error
}

// BookingRequest is a request to book seats for a user.
type BookingRequest struct {
	Username      string
	FullName      string
	Email         string
	Quantity      int
	PaymentStatus PaymentStatus
}

// BookingResult describes the event state after a booking or cancellation.
// swagger:model BookingResult
type BookingResult struct {
	EventID        string        `json:"eventId"`
	Status         EventStatus   `json:"status"`
	Capacity       int           `json:"capacity"`
	BookedSeats    int           `json:"bookedSeats"`
	RemainingSeats int           `json:"remainingSeats"`
	Registration   *Registration `json:"registration,omitempty"`
	PointsAwarded  int           `json:"pointsAwarded"`
}

// BookingService applies the capacity rules to register and unregister users.
type BookingService interface {
	Register(ctx context.Context, caller Principal, eventID string, req BookingRequest) (*BookingResult, error)
	Unregister(ctx context.Context, caller Principal, eventID, username string) (*BookingResult, error)
	TicketOwner(ctx context.Context, caller Principal, eventID, ticketID string) (*Registration, error)
	// CheckTicket resolves a scanned ticket at the door. Only the organizer or an admin may check tickets.
	CheckTicket(ctx context.Context, caller Principal, eventID, ticketID string) (*Registration, error)
}

// LifecycleSummary reports the outcome of one lifecycle sweep.
// swagger:model LifecycleSummary
type LifecycleSummary struct {
	Checked   int      `json:"checked"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// LifecycleRunner runs lifecycle sweeps on demand.
type LifecycleRunner interface {
	RunOnce(ctx context.Context) (LifecycleSummary, error)
}
