package controllers

import (
	"log/slog"
	"net/http"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// EventRequest is the request body for POST /events and PUT /events/{eventID}.
// PUT is a full update; an omitted organizer keeps the current one.
type EventRequest struct {
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Venue       string  `json:"venue"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Organizer   string  `json:"organizer"`
	Capacity    int     `json:"capacity"`
	Status      string  `json:"status"`
	IsPaid      bool    `json:"isPaid"`
	TicketPrice float64 `json:"ticketPrice"`
	Currency    string  `json:"currency"`
}

// Validate implements Validator. Field formats are checked by the service.
func (e EventRequest) Validate() []string {
	var errs []string
	if e.Name == "" {
		errs = append(errs, "name is required")
	}
	if e.Date == "" {
		errs = append(errs, "date is required")
	}
	if e.Capacity <= 0 {
		errs = append(errs, "capacity must be greater than 0")
	}
	return errs
}

func (e EventRequest) toInput() domain.EventInput {
	return domain.EventInput{
		Name:        e.Name,
		Date:        e.Date,
		Time:        e.Time,
		Venue:       e.Venue,
		Description: e.Description,
		Category:    e.Category,
		Organizer:   e.Organizer,
		Capacity:    e.Capacity,
		Status:      domain.EventStatus(e.Status),
		IsPaid:      e.IsPaid,
		TicketPrice: e.TicketPrice,
		Currency:    e.Currency,
	}
}

// CreateEventResponse is the response body for POST /events.
type CreateEventResponse struct {
	Event         *domain.Event `json:"event"`
	PointsAwarded int           `json:"pointsAwarded"`
}

// ListEventsResponse is the paginated response body for GET /events.
type ListEventsResponse struct {
	Events     []*domain.Event  `json:"events"`
	Pagination h.PaginationMeta `json:"pagination"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary List events
// @Description Lists events ordered by date. The body is always the {data, error} envelope, never a bare top-level array. Without page or limit, data is the array of events; with either, data is {events, pagination}.
// @Tags events
// @Produce json
// @Param search query string false "Matches name, description or venue"
// @Param category query string false "Exact category"
// @Param organizer query string false "Organizer username"
// @Param page query int false "Page number (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains an array of events, or {events, pagination} when paginated"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		Organizer: q.Get("organizer"),
	}
	page := h.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), filter, page)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if page == nil {
		h.WriteJSONSuccess(w, http.StatusOK, events)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Events: events, Pagination: h.NewPaginationMeta(*page, total)})
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with its registration ledger.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := c.Service.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Approved managers and admins create events. Status defaults to Active; only Draft or Active are accepted. The organizer earns creation points.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body EventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the event and pointsAwarded"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	event, awarded, err := c.Service.CreateEvent(r.Context(), caller, req.toInput())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, CreateEventResponse{Event: event, PointsAwarded: awarded})
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Full update by the organizer or an admin. Status changes follow the lifecycle rules; capacity cannot drop below booked seats.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param event body EventRequest true "Event data"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_transition"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), caller, r.PathValue("eventID"), req.toInput())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Hard-deletes the event and its ledger. Organizer or admin only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the deleted id"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	id := r.PathValue("eventID")
	if err := c.Service.DeleteEvent(r.Context(), caller, id); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"id": id})
}
