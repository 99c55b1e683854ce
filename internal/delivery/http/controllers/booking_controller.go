package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// TicketCodec renders a ticket as a signed PNG QR code and reads scanned codes back.
type TicketCodec interface {
	PNG(eventID, ticketID string, size int) ([]byte, error)
	Verify(payload string) (eventID, ticketID string, err error)
}

// RegisterBookingRequest is the request body for POST /events/{eventID}/register.
// Tickets and TotalAmount are accepted for compatibility and ignored: ticket ids and
// amounts are computed by the server.
type RegisterBookingRequest struct {
	Username      string   `json:"username"`
	FullName      string   `json:"fullName"`
	Email         string   `json:"email"`
	Quantity      int      `json:"quantity"`
	Tickets       []string `json:"tickets"`
	TotalAmount   float64  `json:"totalAmount"`
	PaymentStatus string   `json:"paymentStatus"`
}

// Validate implements Validator.
func (b RegisterBookingRequest) Validate() []string {
	if b.Quantity < 0 {
		return []string{"quantity must be at least 1"}
	}
	return nil
}

// UnregisterBookingRequest is the optional request body for DELETE /events/{eventID}/register.
type UnregisterBookingRequest struct {
	Username string `json:"username"`
}

// CheckInRequest is the request body for POST /events/{eventID}/checkin.
type CheckInRequest struct {
	Payload string `json:"payload"`
}

// Validate implements Validator.
func (c CheckInRequest) Validate() []string {
	if c.Payload == "" {
		return []string{"payload is required"}
	}
	return nil
}

// CheckInResponse identifies the holder of a scanned ticket.
type CheckInResponse struct {
	EventID      string               `json:"eventId"`
	TicketID     string               `json:"ticketId"`
	Registration *domain.Registration `json:"registration"`
}

type BookingController struct {
	Logger  *slog.Logger
	Service domain.BookingService
	QR      TicketCodec
}

func NewBookingController(logger *slog.Logger, svc domain.BookingService, qr TicketCodec) *BookingController {
	return &BookingController{
		Logger:  logger,
		Service: svc,
		QR:      qr,
	}
}

// Register godoc
// @Summary Book seats
// @Description Books quantity seats (default 1) for the caller, or for username when the caller is an admin. The event closes automatically when it fills up.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body RegisterBookingRequest true "Booking"
// @Success 201 {object} helpers.APIResponse "data contains counts, the registration and pointsAwarded"
// @Failure 400 {object} helpers.APIResponse "error.code: event_not_open, already_registered or insufficient_capacity"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/register [post]
func (c *BookingController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterBookingRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	result, err := c.Service.Register(r.Context(), caller, r.PathValue("eventID"), domain.BookingRequest{
		Username:      req.Username,
		FullName:      req.FullName,
		Email:         req.Email,
		Quantity:      qty,
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, result)
}

// Unregister godoc
// @Summary Cancel a booking
// @Description Removes the caller's booking (or username's, for admins). A closed event reopens when seats free up before its date.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body UnregisterBookingRequest false "Whose booking to cancel"
// @Success 200 {object} helpers.APIResponse "data contains counts and pointsAwarded (negative)"
// @Failure 400 {object} helpers.APIResponse "error.code: not_registered"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/register [delete]
func (c *BookingController) Unregister(w http.ResponseWriter, r *http.Request) {
	var req UnregisterBookingRequest
	if !h.DecodeOptionalAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	result, err := c.Service.Unregister(r.Context(), caller, r.PathValue("eventID"), req.Username)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, result)
}

// TicketQR godoc
// @Summary Ticket QR code
// @Description Returns a signed QR code for one ticket as PNG. Visible to the ticket holder, the organizer and admins.
// @Tags bookings
// @Produce png
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param ticketID path string true "Ticket ID"
// @Param size query int false "Image size in pixels (default 256)"
// @Success 200 {file} binary
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/tickets/{ticketID}/qr [get]
func (c *BookingController) TicketQR(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	eventID, ticketID := r.PathValue("eventID"), r.PathValue("ticketID")
	if _, err := c.Service.TicketOwner(r.Context(), caller, eventID, ticketID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size > 1024 {
		size = 1024
	}
	png, err := c.QR.PNG(eventID, ticketID, size)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// CheckIn godoc
// @Summary Check a scanned ticket
// @Description Verifies the signature of a scanned QR payload and returns the ticket holder. Organizer or admin only.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body CheckInRequest true "Scanned QR payload"
// @Success 200 {object} helpers.APIResponse "data contains the ticket and its registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or event_not_open"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/checkin [post]
func (c *BookingController) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	eventID, ticketID, err := c.QR.Verify(req.Payload)
	if err != nil {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
		return
	}
	if eventID != r.PathValue("eventID") {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "ticket belongs to another event")
		return
	}
	reg, err := c.Service.CheckTicket(r.Context(), caller, eventID, ticketID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, CheckInResponse{EventID: eventID, TicketID: ticketID, Registration: reg})
}
