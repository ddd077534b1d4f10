// Package calendar handles civil dates: parsing, normalization to midnight UTC
// and day arithmetic. No weekday or holiday awareness lives here.
package calendar

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/mtllr/md-planning/internal/planerr"
)

// Layout is the canonical rendering of a date.
const Layout = "2006-01-02"

// Day truncates t to midnight UTC, keeping its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a day from its components.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Parse reads a date string in any common notation. The offending input is
// echoed back on failure.
func Parse(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: %q", planerr.ErrDate, s)
	}
	if t, err := time.Parse(Layout, trimmed); err == nil {
		return Day(t), nil
	}
	t, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", planerr.ErrDate, s)
	}
	return Day(t), nil
}

// Value converts a decoded scalar (string or time.Time) into a day. A nil
// value reports ok=false.
func Value(v any) (t time.Time, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return Day(x), true, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return time.Time{}, false, nil
		}
		t, err := Parse(x)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	default:
		return time.Time{}, false, fmt.Errorf("%w: %v", planerr.ErrDate, v)
	}
}

// AddDays returns the day n calendar days after d.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween is the signed number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// Within reports whether from <= d <= to.
func Within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// Format renders d with Layout.
func Format(d time.Time) string {
	return d.Format(Layout)
}

// Set is a lookup of days.
type Set map[time.Time]struct{}

// NewSet builds a Set from the given days.
func NewSet(days ...time.Time) Set {
	s := make(Set, len(days))
	for _, d := range days {
		s[Day(d)] = struct{}{}
	}
	return s
}

// Has reports whether d is in the set.
func (s Set) Has(d time.Time) bool {
	_, ok := s[Day(d)]
	return ok
}

// Sorted returns the days in ascending order.
func (s Set) Sorted() []time.Time {
	out := make([]time.Time, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
