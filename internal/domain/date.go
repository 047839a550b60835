package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates (YYYYMMDD).
const DateLayout = "20060102"

// PeriodLayout is the wire format for statement months (YYYYMM).
const PeriodLayout = "200601"

// NewDate returns the calendar date as UTC midnight.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the time-of-day component of t.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// FormatDate renders a date as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a strict YYYYMMDD date. Impossible dates such as
// 20230230 are rejected.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("date %q: expected YYYYMMDD", s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

// ParsePeriod parses a strict YYYYMM statement period.
func ParsePeriod(s string) (int, time.Month, error) {
	if len(s) != len(PeriodLayout) {
		return 0, 0, fmt.Errorf("period %q: expected YYYYMM", s)
	}
	t, err := time.ParseInLocation(PeriodLayout, s, time.UTC)
	if err != nil {
		return 0, 0, fmt.Errorf("period %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// MonthBounds returns the first and last calendar day of a month.
func MonthBounds(year int, month time.Month) (first, last time.Time) {
	first = NewDate(year, month, 1)
	last = first.AddDate(0, 1, -1)
	return first, last
}
