/*
types.go - Domain model of the work-hours accounting engine

ENTITIES:
  SalesPerson:  An employee that can be booked into shifts
  WorkDetails:  A contract (expected weekly hours, workday pattern, validity window)
  ExtraHours:   A dated, categorized deviation (vacation, sick leave, extra work, ...)
  Slot/Booking: The shift calendar; bookings aggregate to ShiftplanHoursEntry rows

HOURS:
  Every hour figure is a decimal.Decimal. Proration divides by the number
  of potential workdays, so values such as 40 * 1/3 stay stable when they
  are summed over a year and compared between billing runs.

CONTRACT WINDOW:
  A contract is valid from (FromYear, FromWeek, FromDayOfWeek) to
  (ToYear, ToWeek, ToDayOfWeek), both inclusive. Years and weeks are ISO.
*/
package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/calendar"
)

// =============================================================================
// SALES PERSON
// =============================================================================

type SalesPerson struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Background string     `json:"background"`
	IsPaid     *bool      `json:"is_paid,omitempty"`
	Inactive   bool       `json:"inactive"`
	Deleted    *time.Time `json:"deleted,omitempty"`
	Version    uuid.UUID  `json:"version"`
}

// Paid reports whether the paid flag is set. A hidden flag counts as unpaid.
func (s SalesPerson) Paid() bool { return s.IsPaid != nil && *s.IsPaid }

// WithoutPaidFlag hides the payroll flag from non-HR callers.
func (s SalesPerson) WithoutPaidFlag() SalesPerson {
	s.IsPaid = nil
	return s
}

// =============================================================================
// WORKDAY MASK
// =============================================================================

// Weekdays is a 7-bit mask, bit i set for calendar.DayOfWeek(i).
type Weekdays uint8

// MondayToFriday is the common five day pattern.
const MondayToFriday Weekdays = 0b0011111

func NewWeekdays(days ...calendar.DayOfWeek) Weekdays {
	var w Weekdays
	for _, d := range days {
		if d.Valid() {
			w |= 1 << uint(d)
		}
	}
	return w
}

func (w Weekdays) Has(d calendar.DayOfWeek) bool { return d.Valid() && w&(1<<uint(d)) != 0 }

// List returns the set days in Monday..Sunday order.
func (w Weekdays) List() []calendar.DayOfWeek {
	var days []calendar.DayOfWeek
	for d := calendar.Monday; d <= calendar.Sunday; d++ {
		if w.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w Weekdays) Count() int { return len(w.List()) }

// =============================================================================
// WORK DETAILS (contract)
// =============================================================================

type WorkDetails struct {
	ID              uuid.UUID          `json:"id"`
	SalesPersonID   uuid.UUID          `json:"sales_person_id"`
	ExpectedHours   decimal.Decimal    `json:"expected_hours"`
	FromDayOfWeek   calendar.DayOfWeek `json:"from_day_of_week"`
	FromWeek        int                `json:"from_calendar_week"`
	FromYear        int                `json:"from_year"`
	ToDayOfWeek     calendar.DayOfWeek `json:"to_day_of_week"`
	ToWeek          int                `json:"to_calendar_week"`
	ToYear          int                `json:"to_year"`
	WorkdaysPerWeek int                `json:"workdays_per_week"`
	Workdays        Weekdays           `json:"workdays"`
	VacationDays    int                `json:"vacation_days"`
	Created         time.Time          `json:"created"`
	Deleted         *time.Time         `json:"deleted,omitempty"`
	Version         uuid.UUID          `json:"version"`
}

func (wd WorkDetails) FirstWeek() calendar.Week {
	return calendar.Week{Year: wd.FromYear, Week: wd.FromWeek}
}

func (wd WorkDetails) LastWeek() calendar.Week {
	return calendar.Week{Year: wd.ToYear, Week: wd.ToWeek}
}

// CoversWeek compares (year, week) pairs lexicographically.
func (wd WorkDetails) CoversWeek(w calendar.Week) bool {
	return !w.Before(wd.FirstWeek()) && !w.After(wd.LastWeek())
}

func (wd WorkDetails) FromDate() (calendar.Date, error) {
	return calendar.ISOWeekDate(wd.FromYear, wd.FromWeek, wd.FromDayOfWeek)
}

func (wd WorkDetails) ToDate() (calendar.Date, error) {
	return calendar.ISOWeekDate(wd.ToYear, wd.ToWeek, wd.ToDayOfWeek)
}

func (wd WorkDetails) PotentialWeekdays() []calendar.DayOfWeek { return wd.Workdays.List() }
func (wd WorkDetails) PotentialDaysPerWeek() int               { return wd.Workdays.Count() }

func (wd WorkDetails) HoursPerDay() decimal.Decimal {
	return divOrZero(wd.ExpectedHours, decimal.NewFromInt(int64(wd.WorkdaysPerWeek)))
}

func (wd WorkDetails) HolidayHours() decimal.Decimal {
	return divOrZero(wd.ExpectedHours, decimal.NewFromInt(int64(wd.PotentialDaysPerWeek())))
}

// VacationDaysForYear prorates the yearly entitlement by the share of the
// calendar year the contract covers. Days up to and including the start
// day and the days after the end day are removed. Contracts outside the
// year yield 0.
func (wd WorkDetails) VacationDaysForYear(year int) decimal.Decimal {
	if year < wd.FromYear || year > wd.ToYear {
		return decimal.Zero
	}
	entitlement := decimal.NewFromInt(int64(wd.VacationDays))
	daysInYear := decimal.NewFromInt(int64(calendar.DaysInYear(year)))
	days := entitlement

	if from, err := wd.FromDate(); err == nil && from.Year() == year {
		before := decimal.NewFromInt(int64(from.Ordinal()))
		days = days.Sub(entitlement.Mul(before).Div(daysInYear))
	}
	if to, err := wd.ToDate(); err == nil && to.Year() == year {
		after := decimal.NewFromInt(int64(calendar.DaysInYear(year) - to.Ordinal()))
		days = days.Sub(entitlement.Mul(after).Div(daysInYear))
	}
	return days
}

// =============================================================================
// EXTRA HOURS
// =============================================================================

// CustomExtraHoursDefinition is a user defined extra-hours category.
type CustomExtraHoursDefinition struct {
	ID                     uuid.UUID   `json:"id"`
	Name                   string      `json:"name"`
	Description            string      `json:"description,omitempty"`
	ModifiesBalance        bool        `json:"modifies_balance"`
	AssignedSalesPersonIDs []uuid.UUID `json:"assigned_sales_person_ids"`
	Created                time.Time   `json:"created"`
	Deleted                *time.Time  `json:"deleted,omitempty"`
	Version                uuid.UUID   `json:"version"`
}

type ExtraHours struct {
	ID            uuid.UUID          `json:"id"`
	SalesPersonID uuid.UUID          `json:"sales_person_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Category      ExtraHoursCategory `json:"category"`
	Description   string             `json:"description,omitempty"`
	DateTime      time.Time          `json:"date_time"`
	Created       time.Time          `json:"created"`
	Deleted       *time.Time         `json:"deleted,omitempty"`
	Version       uuid.UUID          `json:"version"`
}

// Date is the UTC calendar day of DateTime. Stores persist timestamps in
// UTC, so every store and every report agree on it.
func (e ExtraHours) Date() calendar.Date { return calendar.DateOf(e.DateTime.UTC()) }

// =============================================================================
// SHIFT PLAN
// =============================================================================

// Slot is a recurring weekly time window. From and To are offsets from midnight.
type Slot struct {
	ID        uuid.UUID          `json:"id"`
	DayOfWeek calendar.DayOfWeek `json:"day_of_week"`
	From      time.Duration      `json:"from"`
	To        time.Duration      `json:"to"`
	ValidFrom calendar.Date      `json:"valid_from"`
	ValidTo   *calendar.Date     `json:"valid_to,omitempty"`
	Deleted   *time.Time         `json:"deleted,omitempty"`
	Version   uuid.UUID          `json:"version"`
}

// Hours is the slot length as fractional hours.
func (s Slot) Hours() decimal.Decimal {
	minutes := int64((s.To - s.From) / time.Minute)
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60))
}

// Booking assigns a sales person to a slot in one ISO week.
type Booking struct {
	ID            uuid.UUID  `json:"id"`
	SalesPersonID uuid.UUID  `json:"sales_person_id"`
	SlotID        uuid.UUID  `json:"slot_id"`
	CalendarWeek  int        `json:"calendar_week"`
	Year          int        `json:"year"`
	Created       time.Time  `json:"created"`
	Deleted       *time.Time `json:"deleted,omitempty"`
	Version       uuid.UUID  `json:"version"`
}

func (b Booking) Week() calendar.Week { return calendar.Week{Year: b.Year, Week: b.CalendarWeek} }

// ShiftplanHoursEntry is the booked hours of one sales person on one day.
type ShiftplanHoursEntry struct {
	SalesPersonID uuid.UUID          `json:"sales_person_id"`
	Year          int                `json:"year"`
	Week          int                `json:"calendar_week"`
	DayOfWeek     calendar.DayOfWeek `json:"day_of_week"`
	Hours         decimal.Decimal    `json:"hours"`
}

func (e ShiftplanHoursEntry) CalendarWeek() calendar.Week {
	return calendar.Week{Year: e.Year, Week: e.Week}
}

func (e ShiftplanHoursEntry) Date() (calendar.Date, error) {
	return calendar.ISOWeekDate(e.Year, e.Week, e.DayOfWeek)
}

// =============================================================================
// HELPERS
// =============================================================================

func divOrZero(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
