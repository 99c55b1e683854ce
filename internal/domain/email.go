package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// BookingConfirmationEmailData holds data for the booking confirmation email.
type BookingConfirmationEmailData struct {
	Email     string
	FullName  string
	EventName string
	EventDate string
	Quantity  int
	Tickets   []string
}

// OrganizerDecisionEmailData holds data for the organizer approval/rejection email.
type OrganizerDecisionEmailData struct {
	Email    string
	FullName string
	Approved bool
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendBookingConfirmation(ctx context.Context, data *BookingConfirmationEmailData) error
	SendOrganizerDecision(ctx context.Context, data *OrganizerDecisionEmailData) error
}
