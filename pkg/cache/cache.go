package cache

import (
	"context"
	"time"
)

// Service is a small expiring key store.
type Service interface {
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// TTL returns the time left on key, or 0 when it is missing or expired.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// TryLock sets key only when it holds no live value and reports whether it did.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}
