package controllers

import (
	"log/slog"
	"net/http"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CollectionChangeResponse is returned after adding to or removing from favorites or pins.
type CollectionChangeResponse struct {
	Collection domain.Collection `json:"collection"`
	EventID    string            `json:"eventId"`
	Member     bool              `json:"member"`
}

type UserController struct {
	Logger *slog.Logger
	Users  domain.UserService
	Events domain.EventService
}

func NewUserController(logger *slog.Logger, users domain.UserService, events domain.EventService) *UserController {
	return &UserController{
		Logger: logger,
		Users:  users,
		Events: events,
	}
}

// Me godoc
// @Summary Current user
// @Description Returns the caller's profile with points, stats, favorites and pins.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me [get]
func (c *UserController) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := c.Users.GetByUsername(r.Context(), caller.Username)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}

// PointsHistory godoc
// @Summary Points history
// @Description Newest first.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {object} helpers.APIResponse "data contains points entries"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me/points [get]
func (c *UserController) PointsHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	entries, err := c.Users.PointsHistory(r.Context(), caller.Username, h.ParseLimit(r))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, entries)
}

// MyBookings godoc
// @Summary Events the caller is registered for
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me/bookings [get]
func (c *UserController) MyBookings(w http.ResponseWriter, r *http.Request) {
	caller, ok := principal(w, r)
	if !ok {
		return
	}
	events, err := c.Events.ListMyBookings(r.Context(), caller.Username)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// Leaderboard godoc
// @Summary Points leaderboard
// @Tags users
// @Produce json
// @Param limit query int false "Number of users (default 10, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains users ordered by points"
// @Router /leaderboard [get]
func (c *UserController) Leaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := c.Users.Leaderboard(r.Context(), h.ParseLimit(r))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, users)
}

// ListCollection serves GET /users/me/favorites and GET /users/me/pins.
// @Summary List favorite or pinned events
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains events"
// @Router /users/me/favorites [get]
// @Router /users/me/pins [get]
func (c *UserController) ListCollection(col domain.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		events, err := c.Users.ListCollection(r.Context(), caller.Username, col)
		if err != nil {
			writeServiceError(c.Logger, w, r, err)
			return
		}
		h.WriteJSONSuccess(w, http.StatusOK, events)
	}
}

// AddToCollection serves PUT /users/me/favorites/{eventID} and PUT /users/me/pins/{eventID}.
// @Summary Favorite or pin an event
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me/favorites/{eventID} [put]
// @Router /users/me/pins/{eventID} [put]
func (c *UserController) AddToCollection(col domain.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		eventID := r.PathValue("eventID")
		if err := c.Users.AddToCollection(r.Context(), caller.Username, col, eventID); err != nil {
			writeServiceError(c.Logger, w, r, err)
			return
		}
		h.WriteJSONSuccess(w, http.StatusOK, CollectionChangeResponse{Collection: col, EventID: eventID, Member: true})
	}
}

// RemoveFromCollection serves DELETE /users/me/favorites/{eventID} and DELETE /users/me/pins/{eventID}.
// @Summary Unfavorite or unpin an event
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Router /users/me/favorites/{eventID} [delete]
// @Router /users/me/pins/{eventID} [delete]
func (c *UserController) RemoveFromCollection(col domain.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := principal(w, r)
		if !ok {
			return
		}
		eventID := r.PathValue("eventID")
		if err := c.Users.RemoveFromCollection(r.Context(), caller.Username, col, eventID); err != nil {
			writeServiceError(c.Logger, w, r, err)
			return
		}
		h.WriteJSONSuccess(w, http.StatusOK, CollectionChangeResponse{Collection: col, EventID: eventID, Member: false})
	}
}
