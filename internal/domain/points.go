package domain

import "context"

// Reasons recorded in the points history.
const (
	ReasonBooking         = "booking"
	ReasonBookingCancel   = "booking cancelled"
	ReasonTicketsSold     = "tickets sold"
	ReasonTicketsRefunded = "tickets refunded"
	ReasonEventCreated    = "event created"
)

// PointsService keeps user balances, stats and history in step with bookings and event creation.
type PointsService interface {
	BookingEventPublisher
	// AwardEventCreated credits the organizer of ev and returns the points awarded.
	AwardEventCreated(ctx context.Context, ev *Event) (int, error)
}
