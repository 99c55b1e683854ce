package controllers

import (
	"log/slog"
	"net/http"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

type AdminController struct {
	Logger    *slog.Logger
	Users     domain.UserService
	Lifecycle domain.LifecycleRunner
}

func NewAdminController(logger *slog.Logger, users domain.UserService, lifecycle domain.LifecycleRunner) *AdminController {
	return &AdminController{Logger: logger, Users: users, Lifecycle: lifecycle}
}

// ListOrganizers godoc
// @Summary List organizer accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending (default), approved or rejected"
// @Success 200 {object} helpers.APIResponse "data contains users"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/organizers [get]
func (c *AdminController) ListOrganizers(w http.ResponseWriter, r *http.Request) {
	status := domain.AccountStatus(r.URL.Query().Get("status"))
	users, err := c.Users.ListOrganizers(r.Context(), status)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, users)
}

// Approve godoc
// @Summary Approve an organizer
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param username path string true "Manager username"
// @Success 200 {object} helpers.APIResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (not a manager)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/organizers/{username}/approve [post]
func (c *AdminController) Approve(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, true)
}

// Reject godoc
// @Summary Reject an organizer
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param username path string true "Manager username"
// @Success 200 {object} helpers.APIResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (not a manager)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/organizers/{username}/reject [post]
func (c *AdminController) Reject(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, false)
}

func (c *AdminController) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	user, err := c.Users.DecideOrganizer(r.Context(), r.PathValue("username"), approve)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, user)
}

// RunLifecycle godoc
// @Summary Run one lifecycle sweep
// @Description Completes every Active or Closed event whose date has passed, immediately.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the sweep summary"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/lifecycle/run [post]
func (c *AdminController) RunLifecycle(w http.ResponseWriter, r *http.Request) {
	summary, err := c.Lifecycle.RunOnce(r.Context())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, summary)
}
