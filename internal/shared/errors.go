package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed  = fmt.Errorf("authentication failed")
	ErrAuthExpired = fmt.Errorf("access token expired")
	ErrTimeout     = fmt.Errorf("operation timed out")

	// Matching and transfer errors
	ErrNoMatch       = fmt.Errorf("no match found")
	ErrUserCancelled = fmt.Errorf("cancelled by user")

	// API and service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)

// StatusError carries the HTTP status of a failed provider call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// RateLimitError signals an HTTP 429 with an optional Retry-After hint.
// The rate governor handles these internally; callers only see one after
// the retry budget is exhausted.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
	}
	return "rate limited"
}

// IsRateLimit reports whether err is (or wraps) a [RateLimitError].
func IsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
