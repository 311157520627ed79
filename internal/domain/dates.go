package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days
const DateLayout = "2006-01-02"

// MaxResolveDays bounds how many days a festival lookup may span
const MaxResolveDays = 60

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DayOf(b).Sub(DayOf(a)).Hours() / 24)
}

// DateRange is an inclusive span of calendar days
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds the range covering days consecutive days from start.
func NewDateRange(start time.Time, days int) DateRange {
	start = DayOf(start)
	return DateRange{Start: start, End: start.AddDate(0, 0, days-1)}
}

// Days is the number of calendar days in the range, 0 when empty.
func (r DateRange) Days() int {
	n := DaysBetween(r.Start, r.End) + 1
	if n < 0 {
		return 0
	}
	return n
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DayOf(t)
	return !d.Before(DayOf(r.Start)) && !d.After(DayOf(r.End))
}

// Each returns every day in the range in order.
func (r DateRange) Each() []time.Time {
	n := r.Days()
	days := make([]time.Time, 0, n)
	start := DayOf(r.Start)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}

// Validate checks the range is non-empty and within maxDays.
func (r DateRange) Validate(maxDays int) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &ValidationError{Field: "dateRange", Reason: "start and end are required"}
	}
	n := r.Days()
	if n < 1 {
		return &ValidationError{Field: "dateRange", Reason: "end is before start"}
	}
	if maxDays > 0 && n > maxDays {
		return &ValidationError{Field: "dateRange", Reason: fmt.Sprintf("spans %d days, max %d", n, maxDays)}
	}
	return nil
}
