// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/strategy"
	"github.com/tomtom215/oteapi-services/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeTypeMismatch     = "TYPE_MISMATCH"
	ErrCodeUnprocessable    = "UNPROCESSABLE"
	ErrCodeValidationFailed = validation.ErrorCode
	ErrCodeStrategyFailed   = "STRATEGY_FAILED"
	ErrCodeCacheUnavailable = "CACHE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details names the offending field and identifier when known.
	Details map[string]interface{} `json:"details,omitempty"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
	})
}

// denyJSON adapts writeError to the auth and authz deny hooks.
func denyJSON(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeError(w, r, status, code, message, nil)
}

// respondErr maps err onto a status code and error envelope. Server-side
// failures are logged with the request context; client errors are not.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classify(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("code", apiErr.Code).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	writeError(w, r, status, apiErr.Code, apiErr.Message, apiErr.Details)
}

// classify maps the error taxonomy to HTTP. Order matters: a strategy may
// fail with a typed error of its own, which then wins over the wrapper, and
// cache failures are reported as such even when raised inside a strategy.
func classify(err error) (int, *APIError) {
	if e, ok := models.AsError(err); ok {
		return kindStatus(e.Kind), &APIError{
			Code:    kindCode(e.Kind),
			Message: e.Message,
			Details: errorDetails(e.Field, e.ID),
		}
	}

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		v := verr.ToAPIError()
		return http.StatusBadRequest, &APIError{Code: v.Code, Message: v.Message, Details: v.Details}
	}

	var opErr *cache.OpError
	if errors.As(err, &opErr) || errors.Is(err, cache.ErrNotInitialized) {
		return http.StatusServiceUnavailable, &APIError{
			Code:    ErrCodeCacheUnavailable,
			Message: "The cache backend is unavailable.",
		}
	}

	var serr *strategy.Error
	if errors.As(err, &serr) {
		return http.StatusBadGateway, &APIError{
			Code:    ErrCodeStrategyFailed,
			Message: serr.Error(),
			Details: map[string]interface{}{"strategy": serr.Name, "method": serr.Method},
		}
	}

	return http.StatusInternalServerError, &APIError{
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
	}
}

func kindStatus(k models.ErrorKind) int {
	switch k {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindUnprocessable:
		return http.StatusUnprocessableEntity
	case models.KindConflict:
		return http.StatusConflict
	case models.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func kindCode(k models.ErrorKind) string {
	switch k {
	case models.KindNotFound:
		return ErrCodeNotFound
	case models.KindUnprocessable:
		return ErrCodeUnprocessable
	case models.KindConflict:
		return ErrCodeConflict
	case models.KindInvalid:
		return ErrCodeValidationFailed
	case models.KindTypeMismatch:
		return ErrCodeTypeMismatch
	default:
		return ErrCodeInternalError
	}
}

func errorDetails(field, id string) map[string]interface{} {
	if field == "" && id == "" {
		return nil
	}
	d := make(map[string]interface{}, 2)
	if field != "" {
		d["field"] = field
	}
	if id != "" {
		d["id"] = id
	}
	return d
}
