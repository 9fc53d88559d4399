package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// WHY HELPERS?
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   WriteError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "title is required ...", "code": "validation_error", "field": "title"}
//
// "error" is for humans, "code" is for programs, "field" is only present when
// one input field is to blame.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/inkpost/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`           // Human-readable description
	Code  string `json:"code"`            // Machine-readable error type (e.g., "not_found")
	Field string `json:"field,omitempty"` // Offending input field, if any
}

// MessageResponse is the body of responses that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE the body is written. Once
// Encode calls w.Write(), the headers are on the wire and later changes are
// silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrDuplicate            → 400
//	ErrInvalidCredentials, ErrUnauthenticated → 401
//	ErrForbidden                           → 403
//	ErrNotFound                            → 404
//	ErrStore, anything else                → 500
//
// It is exported because the auth middleware renders its rejections with it,
// so a 401 from RequireAuth looks exactly like a 401 from a handler.
//
// NEVER expose internal error details: a store failure's cause may contain
// SQL, file paths or hostnames. PublicMessage hides it.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "an internal error occurred",
			Code:  "internal_error",
		})
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error: appErr.PublicMessage(),
		Code:  code,
		Field: appErr.Field,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrDuplicate):
		return http.StatusBadRequest, "duplicate"
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a JSON request body into dst. A malformed body is a
// validation error on the "body" field.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
