package repository

import (
	"context"
	"errors"
	"fmt"
)

// FailureClass says how the retry policy treats a source failure.
type FailureClass int

const (
	ClassFatal FailureClass = iota
	ClassTransient
	ClassThrottled
)

func (c FailureClass) String() string {
	switch c {
	case ClassThrottled:
		return "throttled"
	case ClassTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// Retryable reports whether another attempt may succeed.
func (c FailureClass) Retryable() bool { return c != ClassFatal }

var ErrThrottled = errors.New("source throttled the request")

// SourceError is a classified failure returned by a TrendSource.
type SourceError struct {
	Class      FailureClass
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("trend source %s (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("trend source %s: %v", e.Class, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrThrottled) match any throttled SourceError.
func (e *SourceError) Is(target error) bool {
	return target == ErrThrottled && e.Class == ClassThrottled
}

// Classify maps an error from a TrendSource onto a FailureClass.
// A SourceError carries its own class. Otherwise cancellation is fatal and anything
// else counts as transient.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassFatal
	}
	var se *SourceError
	if errors.As(err, &se) {
		return se.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}
	if errors.Is(err, ErrThrottled) {
		return ClassThrottled
	}
	return ClassTransient
}
