package models

import (
	"errors"
	"time"
)

// PeriodLayout is the Go layout of a billing period ("YYYY-MM").
const PeriodLayout = "2006-01"

var ErrMalformedPeriod = errors.New("period must be formatted as YYYY-MM")

// ParsePeriod validates a billing period and returns the first instant of
// that month in UTC.
func ParsePeriod(period string) (time.Time, error) {
	if len(period) != len(PeriodLayout) {
		return time.Time{}, ErrMalformedPeriod
	}
	t, err := time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, ErrMalformedPeriod
	}
	// reject anything that does not round-trip
	if t.Format(PeriodLayout) != period {
		return time.Time{}, ErrMalformedPeriod
	}
	return t, nil
}

// PeriodOf returns the billing period that contains t.
func PeriodOf(t time.Time) string {
	return t.Format(PeriodLayout)
}

// PreviousPeriod returns the period immediately before the given one.
func PreviousPeriod(period string) (string, error) {
	t, err := ParsePeriod(period)
	if err != nil {
		return "", err
	}
	return PeriodOf(t.AddDate(0, -1, 0)), nil
}
