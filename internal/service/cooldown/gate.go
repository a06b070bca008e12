package cooldown

import (
	"context"
	"fmt"
	"time"

	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/cache"
	applogger "TrendPulse/pkg/logger"
)

// Gate records a per-keyword hold after the source throttles, so later requests
// wait it out instead of spending an attempt. The backing store decides whether the
// hold is shared between replicas (Redis) or local to the process (memory).
type Gate struct {
	store cache.Service
	l     *applogger.Logger
}

func New(store cache.Service, l *applogger.Logger) *Gate {
	if l == nil {
		l = applogger.Nop()
	}
	return &Gate{store: store, l: l}
}

var _ drepo.CooldownGate = (*Gate)(nil)

// Hold extends the hold on key to at least d from now. A longer existing hold is kept.
func (g *Gate) Hold(ctx context.Context, key string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	k := storeKey(key)
	placed, err := g.store.TryLock(ctx, k, d)
	if err != nil {
		return fmt.Errorf("cooldown hold: %w", err)
	}
	if placed {
		g.l.Debug("cooldown hold placed", applogger.String("key", key), applogger.Duration("hold_ms", d))
		return nil
	}
	remaining, err := g.store.TTL(ctx, k)
	if err != nil {
		return fmt.Errorf("cooldown ttl: %w", err)
	}
	if remaining >= d {
		return nil
	}
	until := time.Now().Add(d).UTC().Format(time.RFC3339)
	if err := g.store.Set(ctx, k, until, d); err != nil {
		return fmt.Errorf("cooldown hold: %w", err)
	}
	g.l.Debug("cooldown hold extended", applogger.String("key", key), applogger.Duration("hold_ms", d))
	return nil
}

// Remaining reports how long key is still held; zero when it is free.
func (g *Gate) Remaining(ctx context.Context, key string) (time.Duration, error) {
	d, err := g.store.TTL(ctx, storeKey(key))
	if err != nil {
		return 0, fmt.Errorf("cooldown ttl: %w", err)
	}
	return d, nil
}

// Release clears any hold on key.
func (g *Gate) Release(ctx context.Context, key string) error {
	if err := g.store.Delete(ctx, storeKey(key)); err != nil {
		return fmt.Errorf("cooldown release: %w", err)
	}
	return nil
}

func storeKey(keyword string) string {
	return cache.Key("cooldown", cache.HashKey(keyword))
}
