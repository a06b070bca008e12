package service

import (
	"context"

	"TrendPulse/internal/domain/models"
)

// ChartRenderer rasterizes a series with its display annotation into an image.
type ChartRenderer interface {
	Render(ctx context.Context, series models.TimeSeries, payload models.DisplayPayload) ([]byte, error)
	ContentType() string
}
