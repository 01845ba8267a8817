package errors

import (
	"errors"
	"fmt"
	"strings"
)

// RateLimitError marks a failure as rate-limit classified. The retry policy
// treats these, and only these, as worth retrying with backoff.
type RateLimitError struct {
	Err     error
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err as an explicitly rate-limit classified failure.
func NewRateLimitError(err error, message string) *RateLimitError {
	return &RateLimitError{Err: err, Message: message}
}

// ExhaustedError is the terminal failure produced when every retry attempt of
// an operation was rate limited.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted for %s after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err is a retries-exhausted failure.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// rateLimitMarkers are the substrings that identify a generically wrapped
// rate-limit failure. Upstream SDKs are inconsistent about error types, so a
// 429 frequently arrives as a plain error with one of these in its message.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"resource exhausted",
	"too many requests",
}

// IsRateLimited reports whether err is rate-limit classified: either an
// explicit *RateLimitError or a generic failure carrying a rate-limit marker
// in its message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
