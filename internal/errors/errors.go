package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the dashboard client
var (
	// Transport errors
	ErrNetwork = errors.New("network error")

	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Token errors
	ErrMalformedToken      = errors.New("malformed token")
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors
	ErrSessionExpired   = errors.New("session expired")
	ErrSessionChanged   = errors.New("session changed while request was pending")
	ErrRequestDiscarded = errors.New("request discarded after session change")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// StatusError is returned for any non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// NewStatusError builds a StatusError, falling back to the status text.
func NewStatusError(statusCode int, message string) *StatusError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &StatusError{StatusCode: statusCode, Message: message}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
