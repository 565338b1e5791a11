package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidISOWeek is returned for a week number outside 1..WeeksInYear.
	ErrInvalidISOWeek = errors.New("invalid iso week")

	// ErrInvalidDayOfWeek is returned for a weekday outside Monday..Sunday.
	ErrInvalidDayOfWeek = errors.New("invalid day of week")
)

// =============================================================================
// DAY OF WEEK - Monday=0 .. Sunday=6
// =============================================================================

type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayOfWeekFromNumber converts the storage form (1=Monday .. 7=Sunday).
func DayOfWeekFromNumber(n int) (DayOfWeek, error) {
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDayOfWeek, n)
	}
	return DayOfWeek(n - 1), nil
}

func FromWeekday(wd time.Weekday) DayOfWeek {
	return DayOfWeek((int(wd) + 6) % 7)
}

func (d DayOfWeek) Valid() bool           { return d >= Monday && d <= Sunday }
func (d DayOfWeek) Number() int           { return int(d) + 1 }
func (d DayOfWeek) Weekday() time.Weekday { return time.Weekday((int(d) + 1) % 7) }

func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

// =============================================================================
// ISO WEEK ARITHMETIC
// =============================================================================

// WeeksInYear returns 52 or 53. December 28 always lies in the last ISO week.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// ISOWeekDate converts an ISO (year, week, weekday) triple to a date.
func ISOWeekDate(year, week int, dow DayOfWeek) (Date, error) {
	if week < 1 || week > WeeksInYear(year) {
		return Date{}, fmt.Errorf("%w: %d-W%02d", ErrInvalidISOWeek, year, week)
	}
	if !dow.Valid() {
		return Date{}, fmt.Errorf("%w: %d", ErrInvalidDayOfWeek, int(dow))
	}
	// January 4 is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -int(FromWeekday(jan4.Weekday())))
	return Date{t: monday.AddDate(0, 0, (week-1)*7+int(dow))}, nil
}

// =============================================================================
// WEEK - (ISO year, ISO week)
// =============================================================================

type Week struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// NewWeek normalizes week numbers past the end (or before the start) of a
// year into the neighbouring year.
func NewWeek(year, week int) Week {
	for week > WeeksInYear(year) {
		week -= WeeksInYear(year)
		year++
	}
	for week < 1 {
		year--
		week += WeeksInYear(year)
	}
	return Week{Year: year, Week: week}
}

// Compare orders weeks lexicographically by (Year, Week).
func (w Week) Compare(other Week) int {
	switch {
	case w.Year < other.Year:
		return -1
	case w.Year > other.Year:
		return 1
	case w.Week < other.Week:
		return -1
	case w.Week > other.Week:
		return 1
	}
	return 0
}

func (w Week) Before(other Week) bool { return w.Compare(other) < 0 }
func (w Week) After(other Week) bool  { return w.Compare(other) > 0 }
func (w Week) Next() Week             { return NewWeek(w.Year, w.Week+1) }

func (w Week) Date(d DayOfWeek) (Date, error) { return ISOWeekDate(w.Year, w.Week, d) }

// Span returns Monday..Sunday of the week.
func (w Week) Span() (Range, error) {
	monday, err := w.Date(Monday)
	if err != nil {
		return Range{}, err
	}
	return Range{From: monday, To: monday.AddDays(6)}, nil
}

// Until returns every week from w to last, both inclusive.
func (w Week) Until(last Week) []Week {
	var weeks []Week
	for cur := w; !cur.After(last); cur = cur.Next() {
		weeks = append(weeks, cur)
	}
	return weeks
}

func (w Week) String() string { return fmt.Sprintf("%d-W%02d", w.Year, w.Week) }

// ResolveVirtualWeek maps a year-scoped week index onto a real ISO week.
// Index 0 is the last week of the previous year, indexes past
// WeeksInYear(targetYear) continue into the next year.
func ResolveVirtualWeek(virtual, targetYear int) Week {
	weeks := WeeksInYear(targetYear)
	switch {
	case virtual <= 0:
		return Week{Year: targetYear - 1, Week: WeeksInYear(targetYear - 1)}
	case virtual > weeks:
		return Week{Year: targetYear + 1, Week: virtual - weeks}
	}
	return Week{Year: targetYear, Week: virtual}
}
