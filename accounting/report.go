/*
report.go - Per-employee report builders

ENTRY POINTS:
  ReportsForAllEmployees  HR only. Compact year-to-week summary of every
                          paid sales person.
  ReportForEmployee       HR or self. Detailed report for Jan 1 .. end of
                          untilWeek of a year.
  ReportForEmployeeRange  HR or self. Detailed report for any date range.
  WeekReport              HR only. Cross-employee view of one ISO week.

Each entry point checks authorization first, then reads through the
repositories it was constructed with. Any repository, calendar or lookup
failure aborts the whole computation.

TOTALS:
  overall  = shiftplan + working extra hours
  expected = contract hours - absence hours (gross of zero-expectation weeks)
  balance  = overall - expected

CARRYOVER:
  Year-scoped reports carry the previous year's carryover hours next to
  the balance. Detailed reports add the carried vacation days to the
  entitlement. See carryover.go.
*/
package accounting

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/calendar"
	"go.uber.org/zap"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

type ShortEmployeeReport struct {
	SalesPerson   SalesPerson     `json:"sales_person"`
	BalanceHours  decimal.Decimal `json:"balance_hours"`
	ExpectedHours decimal.Decimal `json:"expected_hours"`
	OverallHours  decimal.Decimal `json:"overall_hours"`

	// CarryoverHours is carried in from the previous year. It is not part
	// of BalanceHours. Always zero in week reports.
	CarryoverHours decimal.Decimal `json:"carryover_hours"`
}

type EmployeeReport struct {
	ShortEmployeeReport

	From                calendar.Date           `json:"from"`
	To                  calendar.Date           `json:"to"`
	ShiftplanHours      decimal.Decimal         `json:"shiftplan_hours"`
	ExtraWorkHours      decimal.Decimal         `json:"extra_work_hours"`
	VacationHours       decimal.Decimal         `json:"vacation_hours"`
	SickLeaveHours      decimal.Decimal         `json:"sick_leave_hours"`
	HolidayHours        decimal.Decimal         `json:"holiday_hours"`
	VacationDays        decimal.Decimal         `json:"vacation_days"`
	SickLeaveDays       decimal.Decimal         `json:"sick_leave_days"`
	HolidayDays         decimal.Decimal         `json:"holiday_days"`
	AbsenceDays         decimal.Decimal         `json:"absence_days"`
	VacationEntitlement decimal.Decimal         `json:"vacation_entitlement"`
	VacationCarryover   int                     `json:"vacation_carryover"`
	CustomExtraHours    []CustomExtraHoursTotal `json:"custom_extra_hours"`
	ByWeek              []GroupedReportHours    `json:"by_week"`
}

// CustomHours returns the total of the named custom category, 0 if absent.
func (r *EmployeeReport) CustomHours(name string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.CustomExtraHours {
		if c.Name == name {
			total = total.Add(c.Hours)
		}
	}
	return total
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	salesPersons SalesPersonRepository
	workDetails  WorkDetailsRepository
	shiftplan    ShiftplanRepository
	extraHours   ExtraHoursRepository
	carryover    CarryoverRepository
	authz        Authorizer
	log          *zap.Logger
}

func NewReporter(repos Repositories, authz Authorizer, log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{
		salesPersons: repos,
		workDetails:  repos,
		shiftplan:    repos,
		extraHours:   repos,
		carryover:    repos,
		authz:        authz,
		log:          log.Named("reporting"),
	}
}

// ReportsForAllEmployees summarizes virtual weeks 0..untilWeek of year for
// every paid sales person. untilWeek is clamped to the year's last week;
// reaching it includes the partial week that continues into year+1.
func (r *Reporter) ReportsForAllEmployees(ctx context.Context, auth AuthContext, year, untilWeek int) ([]ShortEmployeeReport, error) {
	if err := RequireHR(ctx, r.authz, auth); err != nil {
		return nil, err
	}
	weeks := calendar.WeeksInYear(year)
	if untilWeek > weeks {
		untilWeek = weeks
	}
	if untilWeek == weeks {
		untilWeek++
	}

	persons, err := r.salesPersons.AllSalesPersons(ctx)
	if err != nil {
		return nil, WrapStorage("load sales persons", err)
	}
	sortSalesPersons(persons)

	first := calendar.ResolveVirtualWeek(0, year)
	last := calendar.ResolveVirtualWeek(untilWeek, year)

	var reports []ShortEmployeeReport
	for _, p := range persons {
		if !p.Paid() || p.Deleted != nil {
			continue
		}
		contracts, err := r.workDetails.FindWorkDetailsBySalesPerson(ctx, p.ID)
		if err != nil {
			return nil, WrapStorage("load work details", err)
		}
		shiftplan, err := r.shiftplan.FindShiftplanHours(ctx, p.ID, first, last)
		if err != nil {
			return nil, WrapStorage("load shiftplan hours", err)
		}
		extra, err := r.extraHours.FindExtraHoursForYear(ctx, p.ID, year, untilWeek)
		if err != nil {
			return nil, WrapStorage("load extra hours", err)
		}

		byWeek, err := HoursPerWeekForYear(year, untilWeek, Sources{Contracts: contracts, Shiftplan: shiftplan, ExtraHours: extra})
		if err != nil {
			return nil, err
		}
		carryover, err := r.previousCarryover(ctx, p.ID, year)
		if err != nil {
			return nil, err
		}
		t := totalsOf(byWeek)
		reports = append(reports, ShortEmployeeReport{
			SalesPerson:    p,
			BalanceHours:   t.overall.Sub(t.expected),
			ExpectedHours:  t.expected,
			OverallHours:   t.overall,
			CarryoverHours: carryover.CarryoverHours,
		})
		r.log.Debug("short report",
			zap.Stringer("sales_person", p.ID),
			zap.Int("year", year),
			zap.Stringer("balance", t.overall.Sub(t.expected)))
	}
	return reports, nil
}

// ReportForEmployee covers January 1 up to the Sunday of untilWeek, or
// December 31 when untilWeek is the year's last week.
func (r *Reporter) ReportForEmployee(ctx context.Context, auth AuthContext, salesPersonID uuid.UUID, year, untilWeek int) (*EmployeeReport, error) {
	weeks := calendar.WeeksInYear(year)
	if untilWeek < 1 {
		return nil, &InputError{Field: "until_week", Reason: "must be at least 1"}
	}
	to := calendar.LastDayOfYear(year)
	if untilWeek < weeks {
		sunday, err := calendar.ISOWeekDate(year, untilWeek, calendar.Sunday)
		if err != nil {
			return nil, calculationErr("report for employee", err)
		}
		to = sunday
	}
	return r.ReportForEmployeeRange(ctx, auth, salesPersonID, calendar.FirstDayOfYear(year), to)
}

// ReportForEmployeeRange builds the detailed report for [from, to].
func (r *Reporter) ReportForEmployeeRange(ctx context.Context, auth AuthContext, salesPersonID uuid.UUID, from, to calendar.Date) (*EmployeeReport, error) {
	if err := RequireHROrSelf(ctx, r.authz, auth, salesPersonID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, &InputError{Field: "range", Reason: "to " + to.String() + " is before from " + from.String()}
	}
	rng := calendar.NewRange(from, to)

	person, err := r.salesPersons.FindSalesPerson(ctx, salesPersonID)
	if err != nil {
		return nil, WrapStorage("load sales person", err)
	}
	if person == nil {
		return nil, &NotFoundError{Entity: "sales person", ID: salesPersonID}
	}
	contracts, err := r.workDetails.FindWorkDetailsBySalesPerson(ctx, salesPersonID)
	if err != nil {
		return nil, WrapStorage("load work details", err)
	}
	shiftplan, err := r.shiftplan.FindShiftplanHours(ctx, salesPersonID, from.ISOWeek(), to.ISOWeek())
	if err != nil {
		return nil, WrapStorage("load shiftplan hours", err)
	}
	extra, err := r.extraHours.FindExtraHours(ctx, salesPersonID, rng)
	if err != nil {
		return nil, WrapStorage("load extra hours", err)
	}

	byWeek, err := HoursPerWeek(rng, Sources{Contracts: contracts, Shiftplan: shiftplan, ExtraHours: extra})
	if err != nil {
		return nil, err
	}

	report := summarize(*person, rng, byWeek)
	entitlement := decimal.Zero
	for _, c := range contracts {
		entitlement = entitlement.Add(c.VacationDaysForYear(from.Year()))
	}
	carryover, err := r.previousCarryover(ctx, salesPersonID, from.Year())
	if err != nil {
		return nil, err
	}
	report.CarryoverHours = carryover.CarryoverHours
	report.VacationCarryover = carryover.Vacation
	report.VacationEntitlement = entitlement.Round(0).Add(decimal.NewFromInt(int64(carryover.Vacation)))

	hr, err := r.authz.IsHR(ctx, auth)
	if err != nil {
		return nil, err
	}
	if !hr {
		report.SalesPerson = report.SalesPerson.WithoutPaidFlag()
	}

	r.log.Debug("employee report",
		zap.Stringer("sales_person", salesPersonID),
		zap.Stringer("range", rng),
		zap.Int("weeks", len(byWeek)),
		zap.Stringer("balance", report.BalanceHours))
	return report, nil
}

// WeekReport is the cross-employee view of one week. It lists every sales
// person holding a contract that covers the week, paid or not. Contracts
// are weighted over the whole week, extra hours are split by availability.
func (r *Reporter) WeekReport(ctx context.Context, auth AuthContext, year, week int) ([]ShortEmployeeReport, error) {
	if err := RequireHR(ctx, r.authz, auth); err != nil {
		return nil, err
	}
	if week < 1 || week > calendar.WeeksInYear(year) {
		return nil, &InputError{Field: "week", Reason: "out of range for year"}
	}
	w := calendar.Week{Year: year, Week: week}

	contracts, err := r.workDetails.FindWorkDetailsForWeek(ctx, w)
	if err != nil {
		return nil, WrapStorage("load work details", err)
	}
	shiftplan, err := r.shiftplan.FindShiftplanHoursForWeek(ctx, w)
	if err != nil {
		return nil, WrapStorage("load shiftplan hours", err)
	}
	extra, err := r.extraHours.FindExtraHoursForWeek(ctx, w)
	if err != nil {
		return nil, WrapStorage("load extra hours", err)
	}

	ids := make(map[uuid.UUID]bool)
	contractsBy := make(map[uuid.UUID][]WorkDetails)
	for _, c := range contracts {
		ids[c.SalesPersonID] = true
		contractsBy[c.SalesPersonID] = append(contractsBy[c.SalesPersonID], c)
	}
	shiftplanBy := make(map[uuid.UUID]decimal.Decimal)
	for _, e := range shiftplan {
		shiftplanBy[e.SalesPersonID] = shiftplanBy[e.SalesPersonID].Add(e.Hours)
	}
	extraBy := make(map[uuid.UUID][]ExtraHours)
	for _, e := range extra {
		extraBy[e.SalesPersonID] = append(extraBy[e.SalesPersonID], e)
	}

	reports := make([]ShortEmployeeReport, 0, len(ids))
	for id := range ids {
		person, err := r.salesPersons.FindSalesPerson(ctx, id)
		if err != nil {
			return nil, WrapStorage("load sales person", err)
		}
		if person == nil {
			return nil, &NotFoundError{Entity: "sales person", ID: id}
		}

		planned := decimal.Zero
		for _, c := range ContractsForWeek(contractsBy[id], w) {
			weight, err := WeightForWeek(c, w, 0)
			if err != nil {
				return nil, err
			}
			planned = planned.Add(weight.ExpectedHours)
		}
		shift := shiftplanBy[id]
		cls := ClassifyWeekByAvailability(planned, extraBy[id])
		expected := cls.Expectation(planned, shift).Sub(cls.AbsenceHours)
		overall := shift.Add(cls.WorkingHours)
		reports = append(reports, ShortEmployeeReport{
			SalesPerson:   *person,
			BalanceHours:  overall.Sub(expected),
			ExpectedHours: expected,
			OverallHours:  overall,
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		return lessSalesPerson(reports[i].SalesPerson, reports[j].SalesPerson)
	})
	return reports, nil
}

// =============================================================================
// AGGREGATION HELPERS
// =============================================================================

// previousCarryover is the carryover recorded for year-1, zero if none.
func (r *Reporter) previousCarryover(ctx context.Context, salesPersonID uuid.UUID, year int) (Carryover, error) {
	c, err := r.carryover.FindCarryover(ctx, salesPersonID, year-1)
	if err != nil {
		return Carryover{}, WrapStorage("load carryover", err)
	}
	if c == nil {
		return Carryover{SalesPersonID: salesPersonID, Year: year - 1}, nil
	}
	return *c, nil
}

type totals struct {
	shiftplan decimal.Decimal
	overall   decimal.Decimal
	expected  decimal.Decimal
}

func totalsOf(weeks []GroupedReportHours) totals {
	var t totals
	for _, w := range weeks {
		t.shiftplan = t.shiftplan.Add(w.ShiftplanHours)
		t.overall = t.overall.Add(w.OverallHours)
		t.expected = t.expected.Add(w.ExpectedHours)
	}
	return t
}

func summarize(person SalesPerson, rng calendar.Range, weeks []GroupedReportHours) *EmployeeReport {
	t := totalsOf(weeks)
	report := &EmployeeReport{
		ShortEmployeeReport: ShortEmployeeReport{
			SalesPerson:   person,
			BalanceHours:  t.overall.Sub(t.expected),
			ExpectedHours: t.expected,
			OverallHours:  t.overall,
		},
		From:             rng.From,
		To:               rng.To,
		ShiftplanHours:   t.shiftplan,
		CustomExtraHours: mergeCustom(weeks),
		ByWeek:           weeks,
	}
	for _, w := range weeks {
		report.ExtraWorkHours = report.ExtraWorkHours.Add(w.ExtraWorkHours)
		report.VacationHours = report.VacationHours.Add(w.VacationHours)
		report.SickLeaveHours = report.SickLeaveHours.Add(w.SickLeaveHours)
		report.HolidayHours = report.HolidayHours.Add(w.HolidayHours)
		report.VacationDays = report.VacationDays.Add(w.VacationDays())
		report.SickLeaveDays = report.SickLeaveDays.Add(w.SickLeaveDays())
		report.HolidayDays = report.HolidayDays.Add(w.HolidayDays())
		report.AbsenceDays = report.AbsenceDays.Add(w.AbsenceDays())
	}
	return report
}

func sortSalesPersons(persons []SalesPerson) {
	sort.Slice(persons, func(i, j int) bool { return lessSalesPerson(persons[i], persons[j]) })
}

func lessSalesPerson(a, b SalesPerson) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID.String() < b.ID.String()
}
