package domain

import (
	"fmt"
	"time"
)

// DateLayout is the canonical civil date format used across the system.
const DateLayout = "2006-01-02"

// Date is a civil calendar date in the exchange timezone, formatted YYYY-MM-DD.
// Calendar decisions and archive keys operate on civil dates, never on
// instants, so the type is a plain string with helpers.
type Date string

// NewDate truncates t to its civil date.
func NewDate(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(s), nil
}

// Time returns the date as a midnight UTC instant.
// The date is assumed valid; invalid dates return the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Time().AddDate(0, 0, n))
}

// Compact returns the date as YYYYMMDD, the form used in object keys.
func (d Date) Compact() string {
	return d.Time().Format("20060102")
}

// IsZero reports whether the date is empty.
func (d Date) IsZero() bool {
	return d == ""
}

func (d Date) String() string {
	return string(d)
}
