package usecase

import (
	"errors"
	"fmt"
	"time"

	domrepo "TrendPulse/internal/domain/repository"
)

var (
	ErrInvalidRequest     = errors.New("invalid fetch request")
	ErrNoData             = errors.New("no data for keyword in window")
	ErrRateLimitExhausted = errors.New("retries exhausted against trend source")
	ErrFatal              = errors.New("trend source failed")
	ErrInsufficientData   = errors.New("insufficient data for both periods")
	ErrKeywordMismatch    = errors.New("series keyword mismatch")
)

// RetriesExhaustedError is returned when every attempt failed with a retryable error.
type RetriesExhaustedError struct {
	Keyword  string
	Attempts int
	Waited   time.Duration
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("fetch %q: gave up after %d attempts (waited %s): %v", e.Keyword, e.Attempts, e.Waited, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() []error {
	return []error{ErrRateLimitExhausted, e.Last}
}

// Throttled reports whether the source was still throttling on the final attempt.
func (e *RetriesExhaustedError) Throttled() bool {
	return domrepo.Classify(e.Last) == domrepo.ClassThrottled
}

// InsufficientDataError is returned by the dashboard when either window could not be fetched.
type InsufficientDataError struct {
	CurrentErr  error
	PreviousErr error
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v (current: %v, previous: %v)", ErrInsufficientData, e.CurrentErr, e.PreviousErr)
}

func (e *InsufficientDataError) Unwrap() []error {
	errs := []error{ErrInsufficientData}
	if e.CurrentErr != nil {
		errs = append(errs, e.CurrentErr)
	}
	if e.PreviousErr != nil {
		errs = append(errs, e.PreviousErr)
	}
	return errs
}

// Reason is a short user-facing explanation of why no chart was produced.
func (e *InsufficientDataError) Reason() string {
	var exhausted *RetriesExhaustedError
	switch {
	case errors.As(e, &exhausted) && exhausted.Throttled():
		return "The trends source is rate limiting requests. Please try again later."
	case errors.Is(e, ErrRateLimitExhausted):
		return "The trends source is currently unavailable. Please try again later."
	case errors.Is(e, ErrNoData):
		return "The trends source has no data for this search term in one of the periods."
	default:
		return "The trends source returned an error."
	}
}
