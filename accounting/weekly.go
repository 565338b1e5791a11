/*
weekly.go - Weekly aggregation of booked, contracted and extra hours

One GroupedReportHours record per ISO week combines:

  ShiftplanHours       booked hours of the week (within the clip range)
  ContractWeeklyHours  weighted contract hours, or ShiftplanHours + working
                       extra hours in a zero-expectation week
  AbsenceHours         vacation, sick leave and holiday hours (dropped in a
                       zero-expectation week)
  ExpectedHours        ContractWeeklyHours - AbsenceHours
  OverallHours         ShiftplanHours + working extra hours
  Balance              OverallHours - ContractWeeklyHours + AbsenceHours

so Balance == OverallHours - ExpectedHours holds for every week.

ITERATION:
  HoursPerWeekForYear walks virtual weeks 0..WeeksInYear(Y)+1 and clips each
  week to January 1 / December 31; weeks whose clipped span is empty are
  skipped. HoursPerWeek walks the real weeks of an arbitrary date range and
  clips to that range. Bookings and extra hours outside the clip span are
  not counted, so a week straddling New Year is split between the two years.
*/
package accounting

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/calendar"
)

// WorkingHoursDay is one row of a week's day breakdown.
type WorkingHoursDay struct {
	Date     calendar.Date   `json:"date"`
	Hours    decimal.Decimal `json:"hours"`
	Category ReportCategory  `json:"category"`
}

// CustomExtraHoursTotal sums the hours of one custom category.
type CustomExtraHoursTotal struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Hours decimal.Decimal `json:"hours"`
}

type GroupedReportHours struct {
	From                calendar.Date           `json:"from"`
	To                  calendar.Date           `json:"to"`
	Year                int                     `json:"year"`
	Week                int                     `json:"week"`
	ContractWeeklyHours decimal.Decimal         `json:"contract_weekly_hours"`
	ExpectedHours       decimal.Decimal         `json:"expected_hours"`
	OverallHours        decimal.Decimal         `json:"overall_hours"`
	Balance             decimal.Decimal         `json:"balance"`
	AbsenceHours        decimal.Decimal         `json:"absence_hours"`
	ShiftplanHours      decimal.Decimal         `json:"shiftplan_hours"`
	DaysPerWeek         int                     `json:"days_per_week"`
	WorkdaysPerWeek     decimal.Decimal         `json:"workdays_per_week"`
	ExtraWorkHours      decimal.Decimal         `json:"extra_work_hours"`
	VacationHours       decimal.Decimal         `json:"vacation_hours"`
	SickLeaveHours      decimal.Decimal         `json:"sick_leave_hours"`
	HolidayHours        decimal.Decimal         `json:"holiday_hours"`
	CustomExtraHours    []CustomExtraHoursTotal `json:"custom_extra_hours"`
	Days                []WorkingHoursDay       `json:"days"`
}

func (g GroupedReportHours) CalendarWeek() calendar.Week {
	return calendar.Week{Year: g.Year, Week: g.Week}
}

func (g GroupedReportHours) HoursPerDay() decimal.Decimal {
	return divOrZero(g.ContractWeeklyHours, g.WorkdaysPerWeek)
}

func (g GroupedReportHours) HoursPerHoliday() decimal.Decimal {
	return divOrZero(g.ContractWeeklyHours, decimal.NewFromInt(int64(g.DaysPerWeek)))
}

func (g GroupedReportHours) VacationDays() decimal.Decimal {
	return divOrZero(g.VacationHours, g.HoursPerDay())
}

func (g GroupedReportHours) SickLeaveDays() decimal.Decimal {
	return divOrZero(g.SickLeaveHours, g.HoursPerDay())
}

func (g GroupedReportHours) HolidayDays() decimal.Decimal {
	return divOrZero(g.HolidayHours, g.HoursPerHoliday())
}

func (g GroupedReportHours) AbsenceDays() decimal.Decimal {
	return divOrZero(g.VacationHours.Add(g.SickLeaveHours).Add(g.HolidayHours), g.HoursPerDay())
}

// Sources are the per-employee inputs of a weekly aggregation.
type Sources struct {
	Contracts  []WorkDetails
	Shiftplan  []ShiftplanHoursEntry
	ExtraHours []ExtraHours
}

// Weigher prorates one contract for one week within a clip range.
type Weigher func(c WorkDetails, week calendar.Week, clip calendar.Range) (Weight, error)

// HoursPerWeekForYear aggregates virtual weeks 0..untilWeek of year.
// untilWeek is not clamped here; callers pass WeeksInYear(year)+1 for a
// full year.
func HoursPerWeekForYear(year, untilWeek int, src Sources) ([]GroupedReportHours, error) {
	yearRange := calendar.YearRange(year)
	byYear := func(c WorkDetails, week calendar.Week, _ calendar.Range) (Weight, error) {
		return WeightForWeek(c, week, year)
	}

	var weeks []GroupedReportHours
	for v := 0; v <= untilWeek; v++ {
		week := calendar.ResolveVirtualWeek(v, year)
		span, err := week.Span()
		if err != nil {
			return nil, calculationErr("hours per week", err)
		}
		clip := span.Clip(yearRange)
		if clip.Empty() {
			continue
		}
		g, err := HoursForWeek(week, clip, src, byYear)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, g)
	}
	return weeks, nil
}

// HoursPerWeek aggregates every week touched by r, clipped to r.
func HoursPerWeek(r calendar.Range, src Sources) ([]GroupedReportHours, error) {
	var weeks []GroupedReportHours
	for _, week := range r.Weeks() {
		span, err := week.Span()
		if err != nil {
			return nil, calculationErr("hours per week", err)
		}
		g, err := HoursForWeek(week, span.Clip(r), src, WeightForWeekInRange)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, g)
	}
	return weeks, nil
}

// HoursForWeek aggregates one week. Only bookings and entries dated within
// clip are counted; weigh prorates each matching contract.
func HoursForWeek(week calendar.Week, clip calendar.Range, src Sources, weigh Weigher) (GroupedReportHours, error) {
	g := GroupedReportHours{
		From: clip.From,
		To:   clip.To,
		Year: week.Year,
		Week: week.Week,
	}

	var contract Weight
	for _, c := range ContractsForWeek(src.Contracts, week) {
		w, err := weigh(c, week, clip)
		if err != nil {
			return GroupedReportHours{}, err
		}
		contract = contract.Add(w)
	}

	var entries []ExtraHours
	for _, e := range src.ExtraHours {
		d := e.Date()
		if d.ISOWeek() != week || !clip.Contains(d) {
			continue
		}
		entries = append(entries, e)
		g.Days = append(g.Days, WorkingHoursDay{Date: d, Hours: e.Amount, Category: e.Category.ReportCategory()})
	}

	for _, e := range src.Shiftplan {
		if e.CalendarWeek() != week {
			continue
		}
		d, err := e.Date()
		if err != nil {
			return GroupedReportHours{}, calculationErr("shiftplan date", err)
		}
		if !clip.Contains(d) {
			continue
		}
		g.ShiftplanHours = g.ShiftplanHours.Add(e.Hours)
		g.Days = append(g.Days, WorkingHoursDay{Date: d, Hours: e.Hours, Category: CategoryShiftplan})
	}
	sort.SliceStable(g.Days, func(i, j int) bool { return g.Days[i].Date.Before(g.Days[j].Date) })

	cls := ClassifyWeek(contract.ExpectedHours, entries)
	expected := cls.Expectation(contract.ExpectedHours, g.ShiftplanHours)

	g.ContractWeeklyHours = expected
	g.AbsenceHours = cls.AbsenceHours
	g.ExpectedHours = expected.Sub(cls.AbsenceHours)
	g.OverallHours = g.ShiftplanHours.Add(cls.WorkingHours)
	g.Balance = g.OverallHours.Sub(expected).Add(cls.AbsenceHours)
	g.DaysPerWeek = contract.WorkableDays
	g.WorkdaysPerWeek = contract.WorkdaysPerWeek

	for _, e := range entries {
		switch e.Category.Kind {
		case KindExtraWork:
			g.ExtraWorkHours = g.ExtraWorkHours.Add(e.Amount)
		case KindVacation:
			g.VacationHours = g.VacationHours.Add(e.Amount)
		case KindSickLeave:
			g.SickLeaveHours = g.SickLeaveHours.Add(e.Amount)
		case KindHoliday:
			g.HolidayHours = g.HolidayHours.Add(e.Amount)
		}
	}
	g.CustomExtraHours = aggregateCustom(entries)
	return g, nil
}

type customKey struct {
	id   uuid.UUID
	name string
}

func aggregateCustom(entries []ExtraHours) []CustomExtraHoursTotal {
	totals := make(map[customKey]decimal.Decimal)
	for _, e := range entries {
		if e.Category.Kind != KindCustom || e.Category.Custom == nil {
			continue
		}
		k := customKey{id: e.Category.Custom.ID, name: e.Category.Custom.Name}
		totals[k] = totals[k].Add(e.Amount)
	}
	return customTotals(totals)
}

// mergeCustom sums custom totals across weeks.
func mergeCustom(weeks []GroupedReportHours) []CustomExtraHoursTotal {
	totals := make(map[customKey]decimal.Decimal)
	for _, w := range weeks {
		for _, c := range w.CustomExtraHours {
			k := customKey{id: c.ID, name: c.Name}
			totals[k] = totals[k].Add(c.Hours)
		}
	}
	return customTotals(totals)
}

func customTotals(totals map[customKey]decimal.Decimal) []CustomExtraHoursTotal {
	result := make([]CustomExtraHoursTotal, 0, len(totals))
	for k, hours := range totals {
		result = append(result, CustomExtraHoursTotal{ID: k.id, Name: k.name, Hours: hours})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}
