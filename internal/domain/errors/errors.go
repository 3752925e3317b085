// Package errors provides domain-specific error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for domain errors.
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeCompletionFailed = "COMPLETION_FAILED"
)

// Auth domain sentinels. Callers outside the auth boundary only ever see
// these collapsed into a generic unauthorized response.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUnknownSigningKey = errors.New("unknown signing key")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrTokenExpired      = errors.New("token expired")
	ErrKeySetUnavailable = errors.New("key set unavailable")
)

// Session domain sentinels.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrSessionConflict  = errors.New("session modified concurrently")
)

// ErrCompletionFailed is returned when the completion provider errors or times out.
var ErrCompletionFailed = errors.New("completion failed")

// DomainError represents a domain-specific error.
type DomainError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, identifier string) *DomainError {
	return &DomainError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    identifier,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// NewInternalError creates a new internal error. The wrapped error is kept
// for logging only and never rendered to the client.
func NewInternalError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewBadRequestError creates a new bad request error.
func NewBadRequestError(message string, details string) *DomainError {
	return &DomainError{
		Code:       ErrCodeBadRequest,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

// NewCompletionFailedError creates an error for a failed provider call.
func NewCompletionFailedError(message string, err error) *DomainError {
	return &DomainError{
		Code:       ErrCodeCompletionFailed,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// FromSessionError converts session and collaborator sentinels into the
// client-facing DomainError. Unknown errors become internal errors.
func FromSessionError(err error) *DomainError {
	if domainErr, ok := GetDomainError(err); ok {
		return domainErr
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return NewNotFoundError("session", "")
	case errors.Is(err, ErrInvalidSessionID):
		return NewBadRequestError("invalid session ID", "")
	case errors.Is(err, ErrSessionConflict):
		return NewConflictError("session was modified concurrently, retry the request", err)
	case errors.Is(err, ErrCompletionFailed):
		return NewCompletionFailedError("completion provider failed", err)
	default:
		return NewInternalError("internal server error", err)
	}
}

// GetDomainError extracts the domain error from an error.
func GetDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	domainErr, ok := GetDomainError(err)
	return ok && domainErr.Code == ErrCodeValidation
}
