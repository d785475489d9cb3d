package model

import (
	"fmt"
	"time"
)

// DayLayout is the wire and storage format of a game day.
const DayLayout = "2006-01-02"

// Day is a timezone-naive calendar day. The zero Day is "unknown".
type Day struct {
	t time.Time
}

// NewDay returns the day y-m-d.
func NewDay(y int, m time.Month, d int) Day {
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// MustParseDay is ParseDay for constants and tests.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DayLayout)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly before o.
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Day) After(o Day) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same day.
func (d Day) Equal(o Day) bool { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int { return d.t.Compare(o.t) }

// AddDays returns d shifted by n days.
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Day{}
		return nil
	}
	p, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time { return d.t }
