package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TrendPulse/internal/domain/models"
	domrepo "TrendPulse/internal/domain/repository"
	applogger "TrendPulse/pkg/logger"
)

// FetchResult is a successfully fetched window together with what it cost.
type FetchResult struct {
	Series   models.TimeSeries
	Attempts int
	Waited   time.Duration
}

const releaseTimeout = 5 * time.Second

// TrendFetcher pulls one keyword's interest-over-time for one window from a
// rate-limited source, retrying throttled and transient failures with
// exponential backoff.
type TrendFetcher struct {
	source  domrepo.TrendSource
	policy  RetryPolicy
	waiter  Waiter
	gate    domrepo.CooldownGate
	metrics domrepo.Metrics
	l       *applogger.Logger
}

type FetcherOption func(*TrendFetcher)

// WithWaiter replaces the timer based wait, mostly for tests.
func WithWaiter(w Waiter) FetcherOption {
	return func(f *TrendFetcher) { f.waiter = w }
}

// WithCooldownGate shares throttling holds with other requests.
func WithCooldownGate(g domrepo.CooldownGate) FetcherOption {
	return func(f *TrendFetcher) { f.gate = g }
}

func WithFetcherMetrics(m domrepo.Metrics) FetcherOption {
	return func(f *TrendFetcher) { f.metrics = m }
}

func WithFetcherLogger(l *applogger.Logger) FetcherOption {
	return func(f *TrendFetcher) { f.l = l }
}

func NewTrendFetcher(source domrepo.TrendSource, policy RetryPolicy, opts ...FetcherOption) (*TrendFetcher, error) {
	if source == nil {
		return nil, fmt.Errorf("trend source is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}
	f := &TrendFetcher{
		source:  source,
		policy:  policy,
		waiter:  TimerWaiter,
		metrics: nopMetrics{},
		l:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch returns the series for keyword over window. It fails with ErrNoData when the
// source answered with no rows, with a *RetriesExhaustedError once every attempt was
// throttled or transient, and with ErrFatal for anything that must not be retried.
// Cancelling ctx aborts a backoff wait immediately.
func (f *TrendFetcher) Fetch(ctx context.Context, keyword string, window models.DateWindow) (*FetchResult, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword is empty", ErrInvalidRequest)
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	start := time.Now()
	l := f.l.With(applogger.String("keyword", keyword), applogger.String("timeframe", window.Timeframe()))
	st := newRetryState(f.policy)

	held := false
	defer func() {
		if held {
			f.releaseHold(ctx, keyword, l)
		}
	}()

	if err := f.awaitCooldown(ctx, keyword, &st, l); err != nil {
		f.metrics.RecordFetch(keyword, "aborted", time.Since(start).Seconds())
		return nil, err
	}

	var lastErr error
	for !st.exhausted() {
		attempt := st.begin()
		tbl, err := f.source.InterestOverTime(ctx, []string{keyword}, window.Timeframe())
		if err == nil {
			return f.finish(keyword, window, tbl, &st, start, l)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			f.metrics.RecordAttempt(keyword, "aborted")
			f.metrics.RecordFetch(keyword, "aborted", time.Since(start).Seconds())
			return nil, fmt.Errorf("fetch %q aborted on attempt %d: %w", keyword, attempt, ctxErr)
		}

		class := domrepo.Classify(err)
		f.metrics.RecordAttempt(keyword, class.String())
		if !class.Retryable() {
			l.Error("trend source failed", applogger.Int("attempt", attempt), applogger.Error(err))
			f.metrics.RecordFetch(keyword, "fatal", time.Since(start).Seconds())
			return nil, fmt.Errorf("%w: %w", ErrFatal, err)
		}
		lastErr = err

		delay := st.nextDelay()
		l.Warn("trend source refused, backing off",
			applogger.String("class", class.String()),
			applogger.Int("attempt", attempt),
			applogger.Int("max_attempts", f.policy.MaxRetries),
			applogger.Duration("backoff_ms", delay),
			applogger.Error(err),
		)
		if class == domrepo.ClassThrottled && f.gate != nil {
			if herr := f.gate.Hold(ctx, keyword, delay); herr != nil {
				l.Warn("cooldown hold failed", applogger.Error(herr))
			} else {
				held = true
			}
		}
		if werr := f.waiter.Wait(ctx, delay); werr != nil {
			f.metrics.RecordFetch(keyword, "aborted", time.Since(start).Seconds())
			return nil, fmt.Errorf("fetch %q aborted during backoff after %d attempts: %w", keyword, attempt, werr)
		}
		st.waitedFor(delay)
		f.metrics.RecordBackoff(keyword, delay)
	}

	l.Warn("failed to retrieve data, giving up",
		applogger.Int("attempts", st.attempt),
		applogger.Duration("waited_ms", st.waited),
	)
	f.metrics.RecordFetch(keyword, "exhausted", time.Since(start).Seconds())
	return nil, &RetriesExhaustedError{Keyword: keyword, Attempts: st.attempt, Waited: st.waited, Last: lastErr}
}

func (f *TrendFetcher) finish(keyword string, window models.DateWindow, tbl models.InterestTable, st *retryState, start time.Time, l *applogger.Logger) (*FetchResult, error) {
	if tbl.Empty() {
		f.metrics.RecordAttempt(keyword, "no_data")
		f.metrics.RecordFetch(keyword, "no_data", time.Since(start).Seconds())
		l.Info("trend source returned no rows", applogger.Int("attempts", st.attempt))
		return nil, fmt.Errorf("%w: %q %s", ErrNoData, keyword, window.Timeframe())
	}
	series, err := tbl.StripPartial(keyword)
	if err != nil {
		f.metrics.RecordAttempt(keyword, "malformed")
		f.metrics.RecordFetch(keyword, "fatal", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %w", ErrFatal, err)
	}
	f.metrics.RecordAttempt(keyword, "ok")
	f.metrics.RecordFetch(keyword, "ok", time.Since(start).Seconds())
	l.Debug("trend data fetched", applogger.Int("attempts", st.attempt), applogger.Int("rows", series.Len()))
	return &FetchResult{Series: series, Attempts: st.attempt, Waited: st.waited}, nil
}

// releaseHold drops the hold this fetch placed. It runs detached from ctx so an
// aborted fetch still clears it.
func (f *TrendFetcher) releaseHold(ctx context.Context, keyword string, l *applogger.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := f.gate.Release(rctx, keyword); err != nil {
		l.Warn("cooldown release failed", applogger.Error(err))
	}
}

// awaitCooldown sits out a hold placed by an earlier throttled request before
// spending an attempt.
func (f *TrendFetcher) awaitCooldown(ctx context.Context, keyword string, st *retryState, l *applogger.Logger) error {
	if f.gate == nil {
		return nil
	}
	remaining, err := f.gate.Remaining(ctx, keyword)
	if err != nil {
		l.Warn("cooldown lookup failed", applogger.Error(err))
		return nil
	}
	if remaining <= 0 {
		return nil
	}
	l.Info("source cooling down, waiting before first attempt", applogger.Duration("remaining_ms", remaining))
	if err := f.waiter.Wait(ctx, remaining); err != nil {
		return fmt.Errorf("fetch %q aborted during cooldown: %w", keyword, err)
	}
	st.waitedFor(remaining)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordAttempt(string, string) {}
func (nopMetrics) RecordBackoff(string, time.Duration) {}
func (nopMetrics) RecordFetch(string, string, float64) {}
func (nopMetrics) RecordGrowth(string, models.GrowthResult) {}
func (nopMetrics) RecordError(string) {}
