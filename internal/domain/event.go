package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusDraft     EventStatus = "Draft"
	StatusActive    EventStatus = "Active"
	StatusClosed    EventStatus = "Closed"
	StatusCompleted EventStatus = "Completed"
	StatusCancelled EventStatus = "Cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusClosed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of a single booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether p is one of the known payment statuses.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentCompleted || p == PaymentFailed
}

// DateLayout is the wire and storage format of Event.Date.
const DateLayout = "2006-01-02"

// Registration is one user's booking record within an event's ledger.
// swagger:model Registration
type Registration struct {
	Username      string        `json:"username"`
	FullName      string        `json:"fullName"`
	Email         string        `json:"email"`
	RegisteredAt  time.Time     `json:"registeredAt"`
	Quantity      int           `json:"quantity"`
	Tickets       []string      `json:"tickets"`
	TotalAmount   float64       `json:"totalAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

// HasTicket reports whether ticketID belongs to this registration.
func (r Registration) HasTicket(ticketID string) bool {
	for _, t := range r.Tickets {
		if t == ticketID {
			return true
		}
	}
	return false
}

// Event is an organizer-managed event together with its registration ledger.
// Version is bumped by the repository on every write and guards ledger updates.
// swagger:model Event
type Event struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	Venue         string         `json:"venue"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Organizer     string         `json:"organizer"`
	Capacity      int            `json:"capacity"`
	Status        EventStatus    `json:"status"`
	IsPaid        bool           `json:"isPaid"`
	TicketPrice   float64        `json:"ticketPrice"`
	Currency      string         `json:"currency"`
	Registrations []Registration `json:"registrations"`
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// EventFilter narrows event listings. Empty fields are ignored.
type EventFilter struct {
	Search    string
	Category  string
	Organizer string
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// List returns matching events ordered by date. page may be nil for an unpaginated listing;
	// total is the number of matching events regardless of pagination.
	List(ctx context.Context, filter EventFilter, page *PaginationParams) (events []*Event, total int, err error)
	ListByIDs(ctx context.Context, ids []string) ([]*Event, error)
	ListByStatus(ctx context.Context, statuses ...EventStatus) ([]*Event, error)
	ListByRegistrant(ctx context.Context, username string) ([]*Event, error)
	// Update replaces the event document if its stored version still equals event.Version,
	// and increments event.Version. Returns ErrConcurrentUpdate when the version moved on.
	Update(ctx context.Context, event *Event) error
	// UpdateStatus sets the status only when the current status is one of from.
	// It reports whether a document was changed.
	UpdateStatus(ctx context.Context, id string, from []EventStatus, to EventStatus) (bool, error)
	Delete(ctx context.Context, id string) error
}

// EventLocker serialises ledger mutations for a single event.
type EventLocker interface {
	Lock(ctx context.Context, eventID string) (unlock func(), err error)
}

// EventInput carries the organizer-editable fields of an event.
type EventInput struct {
	Name        string
	Date        string
	Time        string
	Venue       string
	Description string
	Category    string
	Organizer   string
	Capacity    int
	Status      EventStatus
	IsPaid      bool
	TicketPrice float64
	Currency    string
}

// EventService defines event management operations.
type EventService interface {
	CreateEvent(ctx context.Context, caller Principal, input EventInput) (*Event, int, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter, page *PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, caller Principal, id string, input EventInput) (*Event, error)
	DeleteEvent(ctx context.Context, caller Principal, id string) error
	ListMyBookings(ctx context.Context, username string) ([]*Event, error)
}
