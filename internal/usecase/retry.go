package usecase

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryPolicy bounds the attempts made against the trends source.
type RetryPolicy struct {
	MaxRetries     int           // total attempts, at least 1
	InitialBackoff time.Duration // first wait, doubled after every retryable failure
	MaxBackoff     time.Duration // 0 leaves the backoff uncapped
}

func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1, got %d", p.MaxRetries)
	}
	if p.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be > 0, got %s", p.InitialBackoff)
	}
	if p.MaxBackoff < 0 {
		return fmt.Errorf("max backoff must be >= 0, got %s", p.MaxBackoff)
	}
	return nil
}

// Waiter blocks for d or until ctx is done, whichever comes first.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

type WaiterFunc func(ctx context.Context, d time.Duration) error

func (f WaiterFunc) Wait(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// TimerWaiter waits on a timer and gives up as soon as ctx is cancelled.
var TimerWaiter Waiter = WaiterFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// retryState is the resumable part of a fetch: how many attempts were made
// and what the next backoff will be.
type retryState struct {
	policy  RetryPolicy
	attempt int
	backoff time.Duration
	waited  time.Duration
}

func newRetryState(p RetryPolicy) retryState {
	return retryState{policy: p, backoff: p.InitialBackoff}
}

// begin starts the next attempt and returns its 1-based number.
func (s *retryState) begin() int {
	s.attempt++
	return s.attempt
}

func (s *retryState) exhausted() bool { return s.attempt >= s.policy.MaxRetries }

// nextDelay returns the wait owed for the attempt that just failed and doubles
// the backoff for the one after it.
func (s *retryState) nextDelay() time.Duration {
	d := s.backoff
	if s.policy.MaxBackoff > 0 && d > s.policy.MaxBackoff {
		d = s.policy.MaxBackoff
	}
	if s.backoff > math.MaxInt64/2 {
		s.backoff = math.MaxInt64
	} else {
		s.backoff *= 2
	}
	return d
}

// waitedFor books time spent waiting.
func (s *retryState) waitedFor(d time.Duration) { s.waited += d }
