package switchbot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"switchbot/internal/infra"
)

var (
	ErrEmptyToken    = errors.New("switchbot: token cannot be empty")
	ErrEmptySecret   = errors.New("switchbot: secret cannot be empty")
	ErrEmptyDeviceID = errors.New("switchbot: device ID cannot be empty")

	// ErrNoBody is returned when a 200 response carries no "body" field.
	ErrNoBody = errors.New("switchbot: response has no body")
)

// TransportError wraps failures that happened before an HTTP response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("switchbot: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request failed because a deadline was exceeded.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

func (e *TransportError) Temporary() bool {
	return !errors.Is(e.Err, context.Canceled)
}

// StatusError is returned for any response whose HTTP status is not 200.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("switchbot: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("switchbot: %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Temporary() bool {
	return infra.IsRetryableHTTPStatus(e.StatusCode)
}

// ValidationError is returned by setters whose argument is outside the accepted range.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("switchbot: %s %d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

func validateRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return &ValidationError{Field: field, Value: value, Min: lo, Max: hi}
	}
	return nil
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

func hasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
