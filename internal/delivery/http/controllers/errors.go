package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// errorMapping pairs a domain sentinel with its HTTP status and error code.
type errorMapping struct {
	target error
	status int
	code   string
}

// Ordered: more specific sentinels come before the ones they wrap.
var errorMappings = []errorMapping{
	{domain.ErrEventNotOpen, http.StatusBadRequest, h.ErrCodeEventNotOpen},
	{domain.ErrAlreadyRegistered, http.StatusBadRequest, h.ErrCodeAlreadyRegistered},
	{domain.ErrInsufficientCapacity, http.StatusBadRequest, h.ErrCodeInsufficientCapacity},
	{domain.ErrNotRegistered, http.StatusBadRequest, h.ErrCodeNotRegistered},
	{domain.ErrInvalidTransition, http.StatusBadRequest, h.ErrCodeInvalidTransition},
	{domain.ErrInvalidInput, http.StatusBadRequest, h.ErrCodeBadRequest},
	{domain.ErrNotFound, http.StatusNotFound, h.ErrCodeNotFound},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, h.ErrCodeUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized, h.ErrCodeUnauthorized},
	{domain.ErrAccountPending, http.StatusForbidden, h.ErrCodeAccountPending},
	{domain.ErrAccountRejected, http.StatusForbidden, h.ErrCodeAccountRejected},
	{domain.ErrForbidden, http.StatusForbidden, h.ErrCodeForbidden},
	{domain.ErrDuplicateUsername, http.StatusConflict, h.ErrCodeConflict},
	{domain.ErrConcurrentUpdate, http.StatusConflict, h.ErrCodeConflict},
}

// writeServiceError maps err to a response. Unmapped errors are logged and returned as 500
// without leaking their text.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			h.WriteJSONError(w, m.status, m.code, err.Error())
			return
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.WarnContext(r.Context(), "request timed out", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusServiceUnavailable, h.ErrCodeInternalError, "request timed out")
		return
	}
	logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "internal server error")
}

// principal returns the authenticated caller or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
	}
	return p, ok
}
