package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the only accepted textual form of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. It is stored as midnight UTC so that
// comparisons and map keys do not depend on the server's location.
type Date struct {
	time.Time
}

// NewDate builds a Date from its parts. Out-of-range parts are normalized like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether d and o are the same calendar day.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int { return d.Time.Compare(o.Time) }

// MonthRange returns the first and last day of the given month, both inclusive.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := NewDate(year, month, 1)
	last := Date{first.AddDate(0, 1, -1)}
	return first, last
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
