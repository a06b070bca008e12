package models

import "time"

// DisplayPayload is what the chart annotation shows.
type DisplayPayload struct {
	Keyword string `json:"keyword"`
	Volume  string `json:"volume"`
	Growth  string `json:"growth"`
}

// FetchStats records how much effort each window took.
type FetchStats struct {
	CurrentAttempts  int           `json:"current_attempts"`
	PreviousAttempts int           `json:"previous_attempts"`
	Waited           time.Duration `json:"waited_ns"`
}

// TrendReport is the outcome of one dashboard build.
type TrendReport struct {
	Keyword     string         `json:"keyword"`
	Current     DateWindow     `json:"current_window"`
	Previous    DateWindow     `json:"previous_window"`
	Growth      GrowthResult   `json:"growth"`
	Display     DisplayPayload `json:"display"`
	Series      *TimeSeries    `json:"series,omitempty"`
	Stats       FetchStats     `json:"stats"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// WithoutSeries returns a copy with the point data dropped.
func (r TrendReport) WithoutSeries() TrendReport {
	r.Series = nil
	return r
}
