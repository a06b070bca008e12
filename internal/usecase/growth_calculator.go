package usecase

import (
	"fmt"
	"math"

	"TrendPulse/internal/domain/models"
)

// GrowthCalculator compares the mean interest of two adjacent windows.
type GrowthCalculator struct{}

func NewGrowthCalculator() *GrowthCalculator { return &GrowthCalculator{} }

// Compute returns both means and the percentage change from previous to current.
// A zero previous mean yields +Inf rather than a division error.
func (GrowthCalculator) Compute(current, previous models.TimeSeries, keyword string) (models.GrowthResult, error) {
	if current.Empty() || previous.Empty() {
		return models.GrowthResult{}, fmt.Errorf("%w: current has %d points, previous has %d", ErrInsufficientData, current.Len(), previous.Len())
	}
	if current.Keyword != keyword || previous.Keyword != keyword {
		return models.GrowthResult{}, fmt.Errorf("%w: want %q, got %q and %q", ErrKeywordMismatch, keyword, current.Keyword, previous.Keyword)
	}

	cur := Mean(current.Values())
	prev := Mean(previous.Values())

	growth := math.Inf(1)
	if prev != 0 {
		growth = (cur - prev) / prev * 100
	}
	return models.GrowthResult{CurrentMean: cur, PreviousMean: prev, GrowthPercent: growth}, nil
}

// Mean is the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
