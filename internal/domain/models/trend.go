package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"TrendPulse/pkg/util"
)

// PartialColumn is the name of the source's "last bucket still filling" flag column.
const PartialColumn = "isPartial"

var (
	ErrInvalidWindow  = errors.New("invalid date window")
	ErrMalformedTable = errors.New("malformed interest table")
)

// Point is one (timestamp, value) sample of interest over time.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimeSeries is the interest-over-time series of a single keyword.
// Points are strictly increasing in time and must be treated as read-only.
type TimeSeries struct {
	Keyword string  `json:"keyword"`
	Points  []Point `json:"points"`
}

// NewTimeSeries copies points and checks ordering and value range.
func NewTimeSeries(keyword string, points []Point) (TimeSeries, error) {
	cp := make([]Point, len(points))
	copy(cp, points)
	for i, p := range cp {
		if p.Value < 0 {
			return TimeSeries{}, fmt.Errorf("%w: negative value %v at %s", ErrMalformedTable, p.Value, p.Time)
		}
		if i > 0 && !cp[i-1].Time.Before(p.Time) {
			return TimeSeries{}, fmt.Errorf("%w: timestamps not strictly increasing at %s", ErrMalformedTable, p.Time)
		}
	}
	return TimeSeries{Keyword: keyword, Points: cp}, nil
}

func (s TimeSeries) Len() int { return len(s.Points) }
func (s TimeSeries) Empty() bool { return len(s.Points) == 0 }

// Columns lists the value columns carried by the series. Always exactly the keyword.
func (s TimeSeries) Columns() []string { return []string{s.Keyword} }

func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Last returns the most recent point.
func (s TimeSeries) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

func (s TimeSeries) Max() float64 {
	var m float64
	for _, p := range s.Points {
		if p.Value > m {
			m = p.Value
		}
	}
	return m
}

// InterestTable is the raw tabular answer of the trends source: a timestamp index,
// one value column per keyword and an optional partial flag column.
type InterestTable struct {
	Index     []time.Time
	Values    map[string][]float64
	IsPartial []bool // nil when the source sent no flag column
}

func (t InterestTable) Empty() bool { return len(t.Index) == 0 }

// Columns returns the keyword columns in sorted order, then the flag column if present.
func (t InterestTable) Columns() []string {
	cols := make([]string, 0, len(t.Values)+1)
	for k := range t.Values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if t.IsPartial != nil {
		cols = append(cols, PartialColumn)
	}
	return cols
}

// StripPartial drops the flag column and returns keyword's column as a TimeSeries.
func (t InterestTable) StripPartial(keyword string) (TimeSeries, error) {
	col, ok := t.Values[keyword]
	if !ok {
		return TimeSeries{}, fmt.Errorf("%w: no column for %q", ErrMalformedTable, keyword)
	}
	if len(col) != len(t.Index) {
		return TimeSeries{}, fmt.Errorf("%w: column %q has %d rows, index has %d", ErrMalformedTable, keyword, len(col), len(t.Index))
	}
	points := make([]Point, len(col))
	for i, v := range col {
		points[i] = Point{Time: t.Index[i], Value: v}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return NewTimeSeries(keyword, points)
}

// DateWindow is an inclusive calendar-date range.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

func NewDateWindow(start, end time.Time) (DateWindow, error) {
	w := DateWindow{Start: util.StartOfDay(start), End: util.StartOfDay(end)}
	if err := w.Validate(); err != nil {
		return DateWindow{}, err
	}
	return w, nil
}

func (w DateWindow) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidWindow)
	}
	if util.StartOfDay(w.Start).After(util.StartOfDay(w.End)) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidWindow, util.FormatDate(w.Start), util.FormatDate(w.End))
	}
	return nil
}

// Timeframe renders the window in the source's "YYYY-MM-DD YYYY-MM-DD" form.
func (w DateWindow) Timeframe() string {
	return util.FormatDate(w.Start) + " " + util.FormatDate(w.End)
}

// Days is the inclusive number of calendar days covered.
func (w DateWindow) Days() int {
	s, e := util.StartOfDay(w.Start), util.StartOfDay(w.End)
	n := 0
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func (w DateWindow) String() string { return w.Timeframe() }

func (w DateWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{util.FormatDate(w.Start), util.FormatDate(w.End)})
}
