package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"TrendPulse/internal/domain/models"
	domrepo "TrendPulse/internal/domain/repository"
)

// scriptedSource answers each call with the next scripted step.
type scriptedSource struct {
	mu         sync.Mutex
	steps      []sourceStep
	calls      int
	timeframes []string
}

type sourceStep struct {
	table models.InterestTable
	err   error
}

func (s *scriptedSource) InterestOverTime(_ context.Context, _ []string, timeframe string) (models.InterestTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeframes = append(s.timeframes, timeframe)
	i := s.calls
	s.calls++
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	return s.steps[i].table, s.steps[i].err
}

func throttled() sourceStep {
	return sourceStep{err: &domrepo.SourceError{Class: domrepo.ClassThrottled, StatusCode: 429, Err: domrepo.ErrThrottled}}
}

func transient() sourceStep {
	return sourceStep{err: &domrepo.SourceError{Class: domrepo.ClassTransient, StatusCode: 503, Err: errors.New("service unavailable")}}
}

func fatal() sourceStep {
	return sourceStep{err: &domrepo.SourceError{Class: domrepo.ClassFatal, StatusCode: 400}}
}

func rows(keyword string, values ...float64) sourceStep {
	idx := make([]time.Time, len(values))
	partial := make([]bool, len(values))
	for i := range values {
		idx[i] = time.Date(2024, 10, 1+i, 0, 0, 0, 0, time.UTC)
	}
	if len(partial) > 0 {
		partial[len(partial)-1] = true
	}
	return sourceStep{table: models.InterestTable{
		Index:     idx,
		Values:    map[string][]float64{keyword: values},
		IsPartial: partial,
	}}
}

func empty() sourceStep { return sourceStep{table: models.InterestTable{}} }

// recordingWaiter never sleeps; it only remembers what it was asked to wait.
type recordingWaiter struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *recordingWaiter) Wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *recordingWaiter) total() time.Duration {
	var t time.Duration
	for _, d := range w.waits {
		t += d
	}
	return t
}

type memGate struct {
	mu        sync.Mutex
	holds     map[string]time.Duration
	remaining time.Duration
	released  []string
}

func (g *memGate) Hold(_ context.Context, key string, d time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holds == nil {
		g.holds = map[string]time.Duration{}
	}
	g.holds[key] = d
	return nil
}

func (g *memGate) Remaining(context.Context, string) (time.Duration, error) {
	return g.remaining, nil
}

// Release must work even when the fetch's own context is already done.
func (g *memGate) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.holds, key)
	g.released = append(g.released, key)
	return nil
}

type countingMetrics struct {
	nopMetrics
	mu       sync.Mutex
	attempts map[string]int
	fetches  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{attempts: map[string]int{}, fetches: map[string]int{}}
}

func (m *countingMetrics) RecordAttempt(_, outcome string) {
	m.mu.Lock()
	m.attempts[outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordFetch(_, result string, _ float64) {
	m.mu.Lock()
	m.fetches[result]++
	m.mu.Unlock()
}
