// Package datetime provides date and time utility functions.
package datetime

import (
	"strings"
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/constants"
)

const (
	// DateLayout is the format expected in snapshot files and is also the output
	// date format.
	DateLayout = constants.DateLayout
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParseDate parses a DateLayout string and panics on error.
func MustParseDate(dateStr string) time.Time {
	return MustParseTime(DateLayout, dateStr)
}

// ParseDate parses a DateLayout string. Surrounding whitespace is ignored and
// the result is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(value))
}

// ParseOptionalDate parses value when it is non-empty. An empty value yields
// a nil time without error.
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DateOf truncates t to its calendar date in t's own location and returns
// that date as midnight UTC, so dates from different zones compare by day.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in the local zone.
func Today() time.Time {
	return DateOf(time.Now())
}

// FormatDate formats t with DateLayout; the zero time formats as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// WithinInclusive reports whether day falls in [start, end] at day
// granularity. A nil end is open-ended. A zero start never contains anything.
func WithinInclusive(day, start time.Time, end *time.Time) bool {
	if start.IsZero() {
		return false
	}
	day = DateOf(day)
	if DateOf(start).After(day) {
		return false
	}
	if end != nil && DateOf(*end).Before(day) {
		return false
	}
	return true
}
