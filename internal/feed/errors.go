package feed

import (
	"errors"
	"fmt"
	"time"
)

// UnavailableError indicates the odds provider could not serve the request
type UnavailableError struct {
	GameID  string
	Message string
	Cause   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("odds feed unavailable [%s]: %s", e.GameID, e.Message)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// RateLimitedError indicates the provider rejected the request for quota
type RateLimitedError struct {
	GameID     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("odds feed rate limited [%s], retry after %s", e.GameID, e.RetryAfter)
}

// NewUnavailableError creates a new unavailable error
func NewUnavailableError(gameID, message string, cause error) *UnavailableError {
	return &UnavailableError{GameID: gameID, Message: message, Cause: cause}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(gameID string, retryAfter time.Duration) *RateLimitedError {
	return &RateLimitedError{GameID: gameID, RetryAfter: retryAfter}
}

// IsSkippable reports whether the error means "skip this game this cycle"
// rather than a scan-level failure
func IsSkippable(err error) bool {
	var unavailable *UnavailableError
	var rateLimited *RateLimitedError
	return errors.As(err, &unavailable) || errors.As(err, &rateLimited)
}
