package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/miraie-core/internal/hass"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "service_unavailable"
	ErrCodeSetupFailed  = "setup_failed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeHostError maps a host sentinel error to a response.
// Unknown errors are logged and reported as 500 without detail.
func (s *Server) writeHostError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hass.ErrEntryNotFound),
		errors.Is(err, hass.ErrEntityNotFound),
		errors.Is(err, hass.ErrIntegrationNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, hass.ErrServiceNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, hass.ErrEntryExists), errors.Is(err, hass.ErrEntityExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, hass.ErrInvalidServiceData), errors.Is(err, hass.ErrNotSupported):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, hass.ErrSetupFailed):
		writeError(w, http.StatusBadRequest, ErrCodeSetupFailed, err.Error())
	case errors.Is(err, hass.ErrEntryNotLoaded), errors.Is(err, hass.ErrHostStopped):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeInternalError(w, "internal server error")
	}
}
