package util

import (
	"strconv"
	"time"
)

// DayLayout is the UTC calendar-day key used for log rotation.
const DayLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// UTCDay returns the UTC calendar day of t, e.g. "2024-10-10".
func UTCDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// StartOfUTCDay truncates t to midnight UTC.
func StartOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MinutesSince returns the elapsed minutes between then and now.
func MinutesSince(then, now time.Time) float64 {
	return now.Sub(then).Minutes()
}
