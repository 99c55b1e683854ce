package domain

import (
	"context"
	"time"
)

// NotificationKind classifies in-app notifications.
type NotificationKind string

const (
	NotifyBookingConfirmed NotificationKind = "booking_confirmed"
	NotifyBookingCancelled NotificationKind = "booking_cancelled"
	NotifyNewBooking       NotificationKind = "new_booking"
	NotifyBookingWithdrawn NotificationKind = "booking_withdrawn"
	NotifyEventCompleted   NotificationKind = "event_completed"
	NotifyAccountApproved  NotificationKind = "account_approved"
	NotifyAccountRejected  NotificationKind = "account_rejected"
)

// Notification is an entry in a user's notification feed.
// swagger:model Notification
type Notification struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	EventID   string           `json:"eventId,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NotificationRepository defines storage for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUsername(ctx context.Context, username string, unreadOnly bool, limit int) ([]*Notification, error)
	// MarkRead marks the notification read if it belongs to username.
	MarkRead(ctx context.Context, id, username string) error
}

// NotificationService exposes the feed and posts notifications for domain events.
type NotificationService interface {
	BookingEventPublisher
	List(ctx context.Context, username string, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, username string) error
	EventCompleted(ctx context.Context, ev *Event) error
	AccountDecided(ctx context.Context, user *User) error
}
