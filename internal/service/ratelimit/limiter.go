package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client key. Every key starts with a full burst.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// New creates a limiter refilling r tokens per second up to burst. Keys unseen for
// idleAfter are dropped by Prune; zero keeps the time a bucket needs to refill.
func New(r rate.Limit, burst int, idleAfter time.Duration) *Limiter {
	if idleAfter <= 0 && r > 0 && r != rate.Inf {
		idleAfter = time.Duration(float64(burst) / float64(r) * float64(time.Second))
	}
	return &Limiter{
		limiters: make(map[string]*clientLimiter),
		rate:     r,
		burst:    burst,
		idle:     idleAfter,
		now:      time.Now,
	}
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.limiters[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	lim := rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = &clientLimiter{limiter: lim, lastSeen: now}
	return lim
}

// Allow consumes one token for key. When none is left it returns false and how long
// until the next one is available.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	lim := l.get(key, now)
	if lim.AllowN(now, 1) {
		return true, 0
	}
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, rate.InfDuration
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Prune drops keys that have been idle for longer than the idle window.
func (l *Limiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, c := range l.limiters {
		if now.Sub(c.lastSeen) >= l.idle {
			delete(l.limiters, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
