package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownForm is returned when a turn names a form the coordinator does not know.
var ErrUnknownForm = errors.New("unknown form")

// ErrUnknownAction is returned when dispatching an action kind that does not exist.
var ErrUnknownAction = errors.New("unknown action")

// BackendError is an error payload returned by the ticketing backend.
// Its Message is surfaced verbatim to the user.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// NewBackendError builds a BackendError from a status and a formatted message.
func NewBackendError(status int, format string, args ...any) *BackendError {
	return &BackendError{Status: status, Message: fmt.Sprintf(format, args...)}
}
