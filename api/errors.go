package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Error is a failure reported by the engine service itself: the request
// reached the server and came back with a non-success status.
type Error struct {
	// StatusCode is the HTTP status returned by the engine.
	StatusCode int
	// Message is a short human-readable description derived from the status.
	Message string
	// Body is the raw (truncated) response body, kept for diagnostics.
	Body string
	// RetryAfter is the server-supplied minimum wait before retrying
	// (parsed from the Retry-After header on 429 responses; 0 = no hint).
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine API: %s (status %d)", e.Message, e.StatusCode)
}

// NetworkError is a transport-level failure: the request never produced an
// HTTP response (connection refused, timeout, DNS failure, ...).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("engine API: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseError is a malformed success response: the server answered 200 but
// the payload could not be decoded. Never retried.
type ResponseError struct {
	Err error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("engine API: invalid response: %v", e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// newStatusError builds an *Error with a message matching the status class.
func newStatusError(status int, body string, retryAfter time.Duration) *Error {
	var message string
	switch {
	case status == http.StatusBadRequest:
		message = "invalid request"
	case status == http.StatusUnauthorized:
		message = "authentication failed - invalid or expired API key"
	case status == http.StatusForbidden:
		message = "access forbidden - insufficient permissions"
	case status == http.StatusNotFound:
		message = "API endpoint not found"
	case status == http.StatusTooManyRequests:
		message = "rate limit exceeded - too many requests"
	case status >= 500 && status < 600:
		message = "server error - service temporarily unavailable"
	default:
		message = "request failed"
	}
	return &Error{
		StatusCode: status,
		Message:    message,
		Body:       truncate(body, 500),
		RetryAfter: retryAfter,
	}
}

// parseRetryAfter interprets a Retry-After header value: either a number of
// seconds or an HTTP date. Returns 0 when absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// Classify maps an arbitrary error into the API failure taxonomy so the retry
// layer can make a decision about it. Errors already in the taxonomy pass
// through unchanged; transport-looking errors become *NetworkError; anything
// else stays as-is and is treated as non-retryable.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	var netErr *NetworkError
	var respErr *ResponseError
	if errors.As(err, &apiErr) || errors.As(err, &netErr) || errors.As(err, &respErr) {
		return err
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return &NetworkError{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &NetworkError{Err: err}
	}

	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
