package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for date-only values.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar day.
// The day is taken in t's own location so that 2026-01-15T23:30+03:00 stays the 15th.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a date-only value.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Range is a closed date interval [Start, End]; both days are included.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRange builds a date-only range; the bounds are taken as given, not swapped.
func NewRange(start, end time.Time) Range {
	return Range{Start: DateOnly(start), End: DateOnly(end)}
}

// Valid reports whether both bounds are set and Start <= End.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Overlaps uses closed intervals: ranges sharing a single day overlap.
func (r Range) Overlaps(other Range) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// Contains reports whether the calendar day of d is within the range.
func (r Range) Contains(d time.Time) bool {
	day := DateOnly(d)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Days returns the number of calendar days covered, inclusive.
func (r Range) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// String renders the range as "Jan 12 to Jan 14", adding the year when the bounds differ in year.
func (r Range) String() string {
	if r.Start.Year() != r.End.Year() {
		return fmt.Sprintf("%s to %s", r.Start.Format("Jan 2, 2006"), r.End.Format("Jan 2, 2006"))
	}
	return fmt.Sprintf("%s to %s", r.Start.Format("Jan 2"), r.End.Format("Jan 2"))
}
