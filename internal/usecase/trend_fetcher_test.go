package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
)

const kw = "west indies vs south africa"

func window(t *testing.T) models.DateWindow {
	t.Helper()
	w, err := models.NewDateWindow(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return w
}

func newFetcher(t *testing.T, src *scriptedSource, w *recordingWaiter, maxRetries int, opts ...FetcherOption) *TrendFetcher {
	t.Helper()
	opts = append([]FetcherOption{WithWaiter(w)}, opts...)
	f, err := NewTrendFetcher(src, RetryPolicy{MaxRetries: maxRetries, InitialBackoff: time.Second}, opts...)
	require.NoError(t, err)
	return f
}

func TestFetchSucceedsAfterThrottling(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled(), throttled(), throttled(), rows(kw, 10, 20, 30)}}
	w := &recordingWaiter{}
	m := newCountingMetrics()
	f := newFetcher(t, src, w, 5, WithFetcherMetrics(m))

	res, err := f.Fetch(context.Background(), kw, window(t))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, w.waits)
	assert.Equal(t, 7*time.Second, w.total())
	assert.Equal(t, 7*time.Second, res.Waited)
	assert.Equal(t, []string{kw}, res.Series.Columns())
	assert.Equal(t, []float64{10, 20, 30}, res.Series.Values())
	assert.Equal(t, 3, m.attempts["throttled"])
	assert.Equal(t, 1, m.attempts["ok"])
	assert.Equal(t, "2024-10-01 2024-10-08", src.timeframes[0])
}

func TestFetchExhaustsRetries(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled()}}
	w := &recordingWaiter{}
	f := newFetcher(t, src, w, 5)

	res, err := f.Fetch(context.Background(), kw, window(t))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimitExhausted))

	var exhausted *RetriesExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 5, exhausted.Attempts)
	assert.True(t, exhausted.Throttled())
	assert.Equal(t, 5, src.calls)
	assert.Equal(t, 31*time.Second, w.total())
	assert.Equal(t, []time.Duration{1, 2, 4, 8, 16}, scale(w.waits, time.Second))
}

func TestFetchBackoffSequence(t *testing.T) {
	for _, maxRetries := range []int{1, 2, 3, 6} {
		src := &scriptedSource{steps: []sourceStep{throttled()}}
		w := &recordingWaiter{}
		f := newFetcher(t, src, w, maxRetries)

		_, err := f.Fetch(context.Background(), kw, window(t))
		require.Error(t, err)
		require.Equal(t, maxRetries, src.calls)
		for k := 1; k < maxRetries; k++ {
			assert.Equal(t, time.Second<<(k-1), w.waits[k-1], "wait before attempt %d", k+1)
		}
	}
}

func TestFetchRespectsMaxBackoff(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled()}}
	w := &recordingWaiter{}
	f, err := NewTrendFetcher(src, RetryPolicy{MaxRetries: 5, InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}, WithWaiter(w))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), kw, window(t))
	require.Error(t, err)
	assert.Equal(t, []time.Duration{1, 2, 3, 3, 3}, scale(w.waits, time.Second))
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{transient(), rows(kw, 5)}}
	w := &recordingWaiter{}
	f := newFetcher(t, src, w, 3)

	res, err := f.Fetch(context.Background(), kw, window(t))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second}, w.waits)
}

func TestFetchFatalIsNotRetried(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{fatal(), rows(kw, 5)}}
	w := &recordingWaiter{}
	f := newFetcher(t, src, w, 5)

	_, err := f.Fetch(context.Background(), kw, window(t))
	assert.True(t, errors.Is(err, ErrFatal))
	assert.Equal(t, 1, src.calls)
	assert.Empty(t, w.waits)
}

func TestFetchNoDataIsDistinct(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{empty()}}
	w := &recordingWaiter{}
	f := newFetcher(t, src, w, 5)

	_, err := f.Fetch(context.Background(), kw, window(t))
	assert.True(t, errors.Is(err, ErrNoData))
	assert.False(t, errors.Is(err, ErrRateLimitExhausted))
	assert.Equal(t, 1, src.calls)
}

func TestFetchMissingKeywordColumnIsFatal(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{rows("something else", 1, 2)}}
	f := newFetcher(t, src, &recordingWaiter{}, 5)

	_, err := f.Fetch(context.Background(), kw, window(t))
	assert.True(t, errors.Is(err, ErrFatal))
	assert.True(t, errors.Is(err, models.ErrMalformedTable))
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled()}}
	ctx, cancel := context.WithCancel(context.Background())
	w := WaiterFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})
	f, err := NewTrendFetcher(src, RetryPolicy{MaxRetries: 5, InitialBackoff: time.Hour}, WithWaiter(w))
	require.NoError(t, err)

	_, err = f.Fetch(ctx, kw, window(t))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, src.calls)
}

func TestFetchDeadlineAbortsTimerWait(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled()}}
	f, err := NewTrendFetcher(src, RetryPolicy{MaxRetries: 5, InitialBackoff: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = f.Fetch(ctx, kw, window(t))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchValidatesInput(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{rows(kw, 1)}}
	f := newFetcher(t, src, &recordingWaiter{}, 5)

	_, err := f.Fetch(context.Background(), "  ", window(t))
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	bad := models.DateWindow{Start: time.Date(2024, 10, 9, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}
	_, err = f.Fetch(context.Background(), kw, bad)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Zero(t, src.calls)
}

func TestNewTrendFetcherRejectsBadPolicy(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{rows(kw, 1)}}
	_, err := NewTrendFetcher(src, RetryPolicy{MaxRetries: 0, InitialBackoff: time.Second})
	assert.Error(t, err)
	_, err = NewTrendFetcher(src, RetryPolicy{MaxRetries: 1})
	assert.Error(t, err)
}

func TestFetchCooldownGate(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled(), rows(kw, 1)}}
	w := &recordingWaiter{}
	gate := &memGate{remaining: 10 * time.Second}
	f := newFetcher(t, src, w, 3, WithCooldownGate(gate))

	res, err := f.Fetch(context.Background(), kw, window(t))
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{10 * time.Second, time.Second}, w.waits)
	assert.Equal(t, 11*time.Second, res.Waited)
	assert.Empty(t, gate.holds, "hold is cleared once the source answers")
	assert.Equal(t, []string{kw}, gate.released)
}

func TestFetchAbortReleasesCooldownHold(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{throttled(), throttled(), throttled()}}
	ctx, cancel := context.WithCancel(context.Background())
	gate := &memGate{}
	waits := 0
	w := WaiterFunc(func(ctx context.Context, d time.Duration) error {
		waits++
		if waits == 3 {
			cancel()
		}
		return ctx.Err()
	})
	f, err := NewTrendFetcher(src, RetryPolicy{MaxRetries: 5, InitialBackoff: 60 * time.Second},
		WithWaiter(w), WithCooldownGate(gate))
	require.NoError(t, err)

	_, err = f.Fetch(ctx, kw, window(t))
	require.True(t, errors.Is(err, context.Canceled))

	// the 240s hold placed before the aborted wait must not outlive the request
	assert.Empty(t, gate.holds)
	assert.Equal(t, []string{kw}, gate.released)
}

func TestFetchWithoutThrottlingLeavesGateAlone(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{transient(), rows(kw, 1)}}
	gate := &memGate{}
	f := newFetcher(t, src, &recordingWaiter{}, 3, WithCooldownGate(gate))

	_, err := f.Fetch(context.Background(), kw, window(t))
	require.NoError(t, err)
	assert.Empty(t, gate.holds)
	assert.Empty(t, gate.released)
}

func scale(ds []time.Duration, unit time.Duration) []time.Duration {
	out := make([]time.Duration, len(ds))
	for i, d := range ds {
		out[i] = d / unit
	}
	return out
}
