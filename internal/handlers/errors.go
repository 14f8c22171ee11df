// Package handlers exposes the services over JSON HTTP.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/middleware"
	"github.com/diewo77/ownervalue/internal/sentryutil"
	"github.com/diewo77/ownervalue/internal/services"
)

// ErrorDetails is the details member of a classified error answer.
type ErrorDetails struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeError maps service errors to statuses. Anything unclassified is logged,
// reported and answered as internal_error.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var se *services.Error
	errors.As(err, &se)
	details := func() *ErrorDetails {
		if se == nil {
			return &ErrorDetails{Message: err.Error()}
		}
		return &ErrorDetails{Message: se.Message, Fields: se.Violations}
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", details())
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", details())
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", details())
	default:
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFrom(r.Context()),
			"error", err,
		)
		sentryutil.CaptureError(r.Context(), err, map[string]string{"endpoint": r.URL.Path})
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeBody decodes a JSON body, answering 400 itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBodyLimit(w, r, dst, httpx.MaxJSONBody)
}

func decodeBodyLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	err := httpx.DecodeJSONLimit(w, r, dst, limit)
	switch {
	case err == nil:
		return true
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.JSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", map[string]int64{"limitBytes": limit})
	case errors.Is(err, httpx.ErrEmptyBody):
		httpx.JSONError(w, http.StatusBadRequest, "empty_body", nil)
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
	}
	return false
}
