package repository

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
)

// TrendSource is the external interest-over-time provider.
type TrendSource interface {
	InterestOverTime(ctx context.Context, keywords []string, timeframe string) (models.InterestTable, error)
}

type ReportPublisher interface {
	Publish(ctx context.Context, report models.TrendReport) error
	Close() error
}

// CooldownGate shares "source is throttling us" holds between requests and replicas.
type CooldownGate interface {
	Hold(ctx context.Context, key string, d time.Duration) error
	Remaining(ctx context.Context, key string) (time.Duration, error)
	Release(ctx context.Context, key string) error
}

type Metrics interface {
	RecordAttempt(keyword, outcome string)
	RecordBackoff(keyword string, d time.Duration)
	RecordFetch(keyword, result string, seconds float64)
	RecordGrowth(keyword string, g models.GrowthResult)
	RecordError(kind string)
}
