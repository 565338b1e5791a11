package calendar

import "fmt"

// Range is an inclusive span of dates.
type Range struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// YearRange spans January 1 to December 31.
func YearRange(year int) Range {
	return Range{From: FirstDayOfYear(year), To: LastDayOfYear(year)}
}

func (r Range) Empty() bool { return r.From.After(r.To) }

func (r Range) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Clip intersects r with other. The result may be empty.
func (r Range) Clip(other Range) Range {
	return Range{From: MaxDate(r.From, other.From), To: MinDate(r.To, other.To)}
}

// Weeks returns the ISO weeks touched by the range.
func (r Range) Weeks() []Week {
	if r.Empty() {
		return nil
	}
	return r.From.ISOWeek().Until(r.To.ISOWeek())
}

func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
