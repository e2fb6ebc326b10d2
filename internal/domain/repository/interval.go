package repository

import "time"

// Interval represents bar resolution buckets.
type Interval string

const (
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
)

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1h, Interval1d, Interval1wk:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return Interval1d }

// NormalizeInterval converts raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

// Duration is the nominal length of one bar.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1h:
		return time.Hour
	case Interval1wk:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// AlignRange rounds the time range down to bar boundaries for the interval.
func AlignRange(from, to time.Time, iv Interval) (time.Time, time.Time) {
	d := iv.Duration()
	return from.UTC().Truncate(d), to.UTC().Truncate(d)
}
