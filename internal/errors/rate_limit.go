package errors

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError reports that a remote service refused a request because of
// request rate. RetryAfter is zero when the service gave no hint.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// NewRateLimitError creates a new RateLimitError with the given message
func NewRateLimitError(message string) *RateLimitError {
	return &RateLimitError{Message: message}
}

// NewRateLimitErrorWithRetry creates a RateLimitError carrying the delay the
// service asked for.
func NewRateLimitErrorWithRetry(message string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Message: message, RetryAfter: retryAfter}
}

// IsRateLimitError reports whether err is a RateLimitError (even when wrapped).
func IsRateLimitError(err error) bool {
	var rateErr *RateLimitError
	return errors.As(err, &rateErr)
}

// RetryAfter returns the retry hint carried by a wrapped RateLimitError.
func RetryAfter(err error) (time.Duration, bool) {
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		return 0, false
	}
	return rateErr.RetryAfter, true
}
