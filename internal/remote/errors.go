package remote

import (
	"errors"
	"fmt"
)

const unknownServerError = "unknown server error"

// ErrTimeout - сервер не ответил за отведенное время
var ErrTimeout = errors.New("request to server timed out")

// StatusError - сервер ответил статусом вне 2xx
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}

	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// EnvelopeError - ответ 2xx, но в конверте success=false
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return e.Message
}

func newEnvelopeError(msg string) *EnvelopeError {
	if msg == "" {
		msg = unknownServerError
	}

	return &EnvelopeError{Message: msg}
}
