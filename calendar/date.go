/*
Package calendar provides the ISO-8601 date and week arithmetic used by
the accounting engine.

WEEK MODEL:
  Weeks follow ISO-8601: week 1 is the week containing the year's first
  Thursday, weeks start on Monday. A week can therefore contain days of
  two Gregorian years (week 1 of 2025 starts on Monday 2024-12-30).

TYPES:
  Date:      A calendar day (UTC midnight), no time of day
  DayOfWeek: Monday=0 .. Sunday=6, stored as 1..7
  Week:      (ISO year, ISO week) pair, ordered lexicographically
  Range:     Inclusive [From, To] span of dates

VIRTUAL WEEKS:
  Year-scoped loops iterate week indexes 0..WeeksInYear(Y)+1 and map them
  with ResolveVirtualWeek. Index 0 is the last week of Y-1, the index past
  the end is week 1 of Y+1, so the partial weeks at both year boundaries
  are addressed by one loop.
*/
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// =============================================================================
// DATE - A calendar day without time of day
// =============================================================================

// Date is a calendar day. The zero value is 0001-01-01.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func Today() Date { return DateOf(time.Now()) }

func FirstDayOfYear(year int) Date { return NewDate(year, time.January, 1) }
func LastDayOfYear(year int) Date  { return NewDate(year, time.December, 31) }

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) Compare(other Date) int {
	switch {
	case d.t.Before(other.t):
		return -1
	case d.t.After(other.t):
		return 1
	}
	return 0
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int            { return d.t.Year() }
func (d Date) Month() time.Month    { return d.t.Month() }
func (d Date) Day() int             { return d.t.Day() }
func (d Date) Ordinal() int         { return d.t.YearDay() }
func (d Date) DayOfWeek() DayOfWeek { return FromWeekday(d.t.Weekday()) }
func (d Date) IsZero() bool         { return d.t.IsZero() }
func (d Date) Time() time.Time      { return d.t }
func (d Date) String() string       { return d.t.Format(dateLayout) }

// ISOWeek returns the ISO week containing d.
func (d Date) ISOWeek() Week {
	y, w := d.t.ISOWeek()
	return Week{Year: y, Week: w}
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	return LastDayOfYear(year).Ordinal()
}

// =============================================================================
// SERIALIZATION - JSON and database/sql
// =============================================================================

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

// Value stores the date as TEXT.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = DateOf(v.UTC())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into calendar.Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
