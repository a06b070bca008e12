package models

import (
	"encoding/json"
	"math"
)

// GrowthResult compares the mean interest of two adjacent windows.
// GrowthPercent is +Inf when PreviousMean is exactly zero.
type GrowthResult struct {
	CurrentMean   float64
	PreviousMean  float64
	GrowthPercent float64
}

func (g GrowthResult) IsInfinite() bool { return math.IsInf(g.GrowthPercent, 1) }

// MarshalJSON encodes the infinite case as a null percent plus a flag.
func (g GrowthResult) MarshalJSON() ([]byte, error) {
	var pct *float64
	if !g.IsInfinite() {
		v := g.GrowthPercent
		pct = &v
	}
	return json.Marshal(struct {
		CurrentMean    float64  `json:"current_mean"`
		PreviousMean   float64  `json:"previous_mean"`
		GrowthPercent  *float64 `json:"growth_percent"`
		GrowthInfinite bool     `json:"growth_infinite"`
	}{g.CurrentMean, g.PreviousMean, pct, g.IsInfinite()})
}
