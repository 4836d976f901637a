// Package errors provides standardized error definitions for blendroom.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a structured application error.
type Error struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	Err        error       `json:"-"` // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails adds details to a copy of the error.
func (e *Error) WithDetails(details interface{}) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// WithError wraps another error in a copy of the error.
func (e *Error) WithError(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// New creates a new Error.
func New(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with an error code and message.
func Wrap(err error, code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes
const (
	// General errors
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"

	// Session errors
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeSessionCodeNotFound = "SESSION_CODE_NOT_FOUND"
	ErrCodeMalformedSession    = "MALFORMED_SESSION"
	ErrCodeNotParticipant      = "NOT_PARTICIPANT"
	ErrCodeNotDJ               = "NOT_DJ"
	ErrCodeAlreadyJoined       = "ALREADY_JOINED"
	ErrCodeInvalidPosition     = "INVALID_POSITION"
	ErrCodeDuplicateTrack      = "DUPLICATE_TRACK"
	ErrCodeAlreadyVoted        = "ALREADY_VOTED"

	// Queue engine errors
	ErrCodeProfileNotReady        = "PROFILE_NOT_READY"
	ErrCodeRegenerationInProgress = "REGENERATION_IN_PROGRESS"

	// Catalog errors
	ErrCodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	ErrCodeCatalogRateLimited = "CATALOG_RATE_LIMITED"
	ErrCodeCircuitOpen        = "CIRCUIT_OPEN"

	// Storage errors
	ErrCodeStorageError = "STORAGE_ERROR"
)

// Predefined errors
var (
	ErrInternal        = New(ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	ErrInvalidRequest  = New(ErrCodeInvalidRequest, "Invalid request", http.StatusBadRequest)
	ErrNotFound        = New(ErrCodeNotFound, "Resource not found", http.StatusNotFound)
	ErrForbidden       = New(ErrCodeForbidden, "Access forbidden", http.StatusForbidden)
	ErrUnauthorized    = New(ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	ErrTooManyRequests = New(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests)
)

var (
	ErrSessionNotFound     = New(ErrCodeSessionNotFound, "Session not found", http.StatusNotFound)
	ErrSessionCodeNotFound = New(ErrCodeSessionCodeNotFound, "No session with that join code", http.StatusNotFound)
	ErrMalformedSession    = New(ErrCodeMalformedSession, "Stored session failed validation", http.StatusInternalServerError)
	ErrNotParticipant      = New(ErrCodeNotParticipant, "User is not a participant of this session", http.StatusForbidden)
	ErrNotDJ               = New(ErrCodeNotDJ, "DJ role required", http.StatusForbidden)
	ErrAlreadyJoined       = New(ErrCodeAlreadyJoined, "User already joined this session", http.StatusConflict)
	ErrInvalidPosition     = New(ErrCodeInvalidPosition, "Queue position out of range", http.StatusBadRequest)
	ErrDuplicateTrack      = New(ErrCodeDuplicateTrack, "Track already queued or played", http.StatusConflict)
	ErrAlreadyVoted        = New(ErrCodeAlreadyVoted, "User already voted for this track", http.StatusConflict)
)

var (
	// ErrProfileNotReady signals the session has no aggregated profile yet.
	// This is an expected transient state, not a failure.
	ErrProfileNotReady = New(ErrCodeProfileNotReady, "Session profile not computed yet", http.StatusConflict)

	// ErrRegenerationInProgress signals a regeneration already holds the
	// session lock. Callers treat it as "deferred", not as a failure.
	ErrRegenerationInProgress = New(ErrCodeRegenerationInProgress, "Queue regeneration already running", http.StatusConflict)
)

var (
	ErrCatalogUnavailable = New(ErrCodeCatalogUnavailable, "Music catalog temporarily unavailable", http.StatusBadGateway)
	ErrCatalogRateLimited = New(ErrCodeCatalogRateLimited, "Music catalog rate limit reached", http.StatusTooManyRequests)
	ErrCircuitOpen        = New(ErrCodeCircuitOpen, "Music catalog circuit breaker is open", http.StatusServiceUnavailable)
	ErrStorage            = New(ErrCodeStorageError, "Storage error", http.StatusInternalServerError)
)

// IsError checks if an error matches a specific application error by code.
func IsError(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == target.Code
}

// IsRetryable reports whether an error represents a transient condition the
// caller may retry on a later triggering event.
func IsRetryable(err error) bool {
	return IsError(err, ErrCatalogUnavailable) ||
		IsError(err, ErrCatalogRateLimited) ||
		IsError(err, ErrCircuitOpen) ||
		IsError(err, ErrStorage)
}

// GetHTTPStatus returns the HTTP status code for an error.
// If the error is not an *Error, returns 500.
func GetHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	return appErr.HTTPStatus
}

// GetCode returns the error code for an error.
// If the error is not an *Error, returns INTERNAL_ERROR.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return ErrCodeInternal
	}
	return appErr.Code
}
