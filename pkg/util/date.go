package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date layout used by the trends timeframe.
const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD in loc. Returns (t, true) if it worked.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays shifts a calendar date by n days, DST-safe.
func AddDays(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, n)
}

// ParseUnix parses a unix-seconds string as returned by the trends API.
func ParseUnix(s string) (time.Time, bool) {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ts < 0 {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).UTC(), true
}

// ParseBoolDefault parses s as a bool or returns def if empty/invalid.
func ParseBoolDefault(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
