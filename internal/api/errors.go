package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/validation"
	"github.com/nerrad567/gray-logic-access/internal/zone"
)

// ErrorSource names the request field an error is about.
type ErrorSource struct {
	Pointer string `json:"pointer"`
}

// Error is one entry of an error response.
type Error struct {
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Source *ErrorSource `json:"source,omitempty"`
	Detail string       `json:"detail"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Errors []Error `json:"errors"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeTimeout        = "device_timeout"
	ErrCodeDeviceProtocol = "device_protocol_error"
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

// writeError writes a single-error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Errors: []Error{{
		Status: strconv.Itoa(status),
		Code:   code,
		Detail: message,
	}}})
}

// writeValidationErrors writes one entry per failed field.
func writeValidationErrors(w http.ResponseWriter, list validation.List) {
	status := strconv.Itoa(http.StatusUnprocessableEntity)
	resp := ErrorResponse{Errors: make([]Error, 0, len(list))}
	for _, e := range list {
		item := Error{Status: status, Code: ErrCodeValidation, Detail: e.Message}
		if e.Pointer != "" {
			item.Source = &ErrorSource{Pointer: e.Pointer}
		}
		resp.Errors = append(resp.Errors, item)
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps repository errors to responses. what names the
// entity in not-found and internal error messages.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, what string) {
	if list, ok := validation.Collect(err); ok {
		writeValidationErrors(w, list)
		return
	}
	switch {
	case errors.Is(err, hardware.ErrNotFound), errors.Is(err, zone.ErrNotFound):
		writeNotFound(w, what+" not found")
	case errors.Is(err, hardware.ErrVersionConflict),
		errors.Is(err, zone.ErrVersionConflict),
		errors.Is(err, hardware.ErrDeviceInUse):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		s.logger.Error("request failed", "entity", what, "error", err)
		writeInternalError(w, "failed to process "+what)
	}
}
