package myerrors

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession              = errors.New("no active session")
	ErrKeyNotFound            = errors.New("key not found in store")
	ErrMissingCredentials     = errors.New("email and password are required")
	ErrInvalidCredentials     = errors.New("email or password is wrong")
	ErrAccountPendingApproval = errors.New("account has not been approved by an administrator yet")
	ErrUnrecognizedLoginShape = errors.New("login response has no recognizable token or user")
	ErrRealtimeUnavailable    = errors.New("realtime connection is not available")
	ErrValueTampered          = errors.New("stored value failed authentication")
)

// APIError carries the HTTP status and the best-effort server message of a
// failed backend call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401:
		return ErrInvalidCredentials
	case 403:
		return ErrAccountPendingApproval
	}
	return nil
}
