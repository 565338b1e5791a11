/*
snapshot.go - Billing-period snapshotter

BUILD:
  start = day after the latest non-deleted period's end date,
          or 1970-01-02 when no period exists
  for each non-deleted sales person (name, then id):
    report_start  Jan 1 of start's year .. start-1   (zero when empty)
    report_end    Jan 1 of end's year   .. end
    report_year   Jan 1 .. Dec 31 of end's year
    report_delta  start .. end
  each tracked value = {delta, start, end, year} of the four reports.
  Custom categories are taken from the delta report; a category missing
  from another report counts as 0 there.

PERSIST:
  CreateBillingPeriod writes the period and all values through the
  repositories it was given. The caller owns the transaction, so the
  snapshot is stored completely or not at all.

Every operation requires the HR privilege.
*/
package billing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
	"go.uber.org/zap"
)

// EmployeeReporter is the report builder the snapshotter relies on.
type EmployeeReporter interface {
	ReportForEmployeeRange(ctx context.Context, auth accounting.AuthContext, salesPersonID uuid.UUID, from, to calendar.Date) (*accounting.EmployeeReport, error)
}

// FirstStartDate is the start of the first billing period.
var FirstStartDate = calendar.NewDate(1970, time.January, 2)

type Snapshotter struct {
	repos   Repositories
	reports EmployeeReporter
	authz   accounting.Authorizer
	now     func() time.Time
	log     *zap.Logger
}

func NewSnapshotter(repos Repositories, reports EmployeeReporter, authz accounting.Authorizer, log *zap.Logger) *Snapshotter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Snapshotter{
		repos:   repos,
		reports: reports,
		authz:   authz,
		now:     time.Now,
		log:     log.Named("billing"),
	}
}

// WithClock replaces the clock used for created/deleted timestamps.
func (s *Snapshotter) WithClock(now func() time.Time) *Snapshotter {
	s.now = now
	return s
}

// =============================================================================
// BUILD & CREATE
// =============================================================================

// NextStartDate is the start date the next billing period would get.
func (s *Snapshotter) NextStartDate(ctx context.Context) (calendar.Date, error) {
	latest, err := s.repos.LatestBillingPeriodEnd(ctx)
	if err != nil {
		return calendar.Date{}, accounting.WrapStorage("load latest billing period", err)
	}
	if latest == nil {
		return FirstStartDate, nil
	}
	return latest.AddDays(1), nil
}

// BuildBillingPeriod computes the next period ending at endDate without
// persisting it.
func (s *Snapshotter) BuildBillingPeriod(ctx context.Context, auth accounting.AuthContext, endDate calendar.Date) (*BillingPeriod, error) {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return nil, err
	}
	start, err := s.NextStartDate(ctx)
	if err != nil {
		return nil, err
	}
	if endDate.Before(start) {
		return nil, &accounting.InputError{
			Field:  "end_date",
			Reason: "end date " + endDate.String() + " is before period start " + start.String(),
		}
	}

	persons, err := s.repos.AllSalesPersons(ctx)
	if err != nil {
		return nil, accounting.WrapStorage("load sales persons", err)
	}
	sort.Slice(persons, func(i, j int) bool {
		if persons[i].Name != persons[j].Name {
			return persons[i].Name < persons[j].Name
		}
		return persons[i].ID.String() < persons[j].ID.String()
	})

	bp := &BillingPeriod{StartDate: start, EndDate: endDate}
	for _, p := range persons {
		if p.Deleted != nil {
			continue
		}
		sp, err := s.buildForSalesPerson(ctx, auth, p.ID, start, endDate)
		if err != nil {
			return nil, err
		}
		bp.SalesPersons = append(bp.SalesPersons, sp)
	}
	return bp, nil
}

// CreateBillingPeriod builds and stores the next period.
func (s *Snapshotter) CreateBillingPeriod(ctx context.Context, auth accounting.AuthContext, endDate calendar.Date) (*BillingPeriod, error) {
	bp, err := s.BuildBillingPeriod(ctx, auth, endDate)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	actor := auth.Actor()
	bp.ID = uuid.New()
	bp.CreatedAt = now
	bp.CreatedBy = actor
	for i := range bp.SalesPersons {
		bp.SalesPersons[i].ID = uuid.New()
		bp.SalesPersons[i].BillingPeriodID = bp.ID
		bp.SalesPersons[i].CreatedAt = now
		bp.SalesPersons[i].CreatedBy = actor
	}

	if err := s.repos.CreateBillingPeriod(ctx, *bp); err != nil {
		return nil, accounting.WrapStorage("create billing period", err)
	}
	s.log.Info("billing period created",
		zap.Stringer("id", bp.ID),
		zap.Stringer("start", bp.StartDate),
		zap.Stringer("end", bp.EndDate),
		zap.Int("sales_persons", len(bp.SalesPersons)),
		zap.String("created_by", actor))
	return bp, nil
}

func (s *Snapshotter) buildForSalesPerson(ctx context.Context, auth accounting.AuthContext, id uuid.UUID, start, end calendar.Date) (BillingPeriodSalesPerson, error) {
	ytdFrom, err := s.report(ctx, auth, id, calendar.FirstDayOfYear(start.Year()), start.AddDays(-1))
	if err != nil {
		return BillingPeriodSalesPerson{}, err
	}
	ytdTo, err := s.report(ctx, auth, id, calendar.FirstDayOfYear(end.Year()), end)
	if err != nil {
		return BillingPeriodSalesPerson{}, err
	}
	fullYear, err := s.report(ctx, auth, id, calendar.FirstDayOfYear(end.Year()), calendar.LastDayOfYear(end.Year()))
	if err != nil {
		return BillingPeriodSalesPerson{}, err
	}
	delta, err := s.report(ctx, auth, id, start, end)
	if err != nil {
		return BillingPeriodSalesPerson{}, err
	}

	values := make(map[ValueType]Value, len(trackedValues)+len(delta.CustomExtraHours))
	for _, tv := range trackedValues {
		values[tv.typ] = Value{
			Delta:    tv.get(delta),
			YTDFrom:  tv.get(ytdFrom),
			YTDTo:    tv.get(ytdTo),
			FullYear: tv.get(fullYear),
		}
	}
	for _, c := range delta.CustomExtraHours {
		values[CustomValueType(c.Name)] = Value{
			Delta:    delta.CustomHours(c.Name),
			YTDFrom:  ytdFrom.CustomHours(c.Name),
			YTDTo:    ytdTo.CustomHours(c.Name),
			FullYear: fullYear.CustomHours(c.Name),
		}
	}

	s.log.Debug("billing values",
		zap.Stringer("sales_person", id),
		zap.Int("values", len(values)))
	return BillingPeriodSalesPerson{SalesPersonID: id, Values: values}, nil
}

// report returns an all-zero report for an empty range, which happens
// for report_start when the period begins on January 1.
func (s *Snapshotter) report(ctx context.Context, auth accounting.AuthContext, id uuid.UUID, from, to calendar.Date) (*accounting.EmployeeReport, error) {
	if to.Before(from) {
		return &accounting.EmployeeReport{From: from, To: to}, nil
	}
	return s.reports.ReportForEmployeeRange(ctx, auth, id, from, to)
}

var trackedValues = []struct {
	typ ValueType
	get func(*accounting.EmployeeReport) decimal.Decimal
}{
	{ValueBalance, func(r *accounting.EmployeeReport) decimal.Decimal { return r.BalanceHours }},
	{ValueOverall, func(r *accounting.EmployeeReport) decimal.Decimal { return r.OverallHours }},
	{ValueExpectedHours, func(r *accounting.EmployeeReport) decimal.Decimal { return r.ExpectedHours }},
	{ValueExtraWork, func(r *accounting.EmployeeReport) decimal.Decimal { return r.ExtraWorkHours }},
	{ValueVacationHours, func(r *accounting.EmployeeReport) decimal.Decimal { return r.VacationHours }},
	{ValueSickLeave, func(r *accounting.EmployeeReport) decimal.Decimal { return r.SickLeaveHours }},
	{ValueHoliday, func(r *accounting.EmployeeReport) decimal.Decimal { return r.HolidayHours }},
	{ValueVacationDays, func(r *accounting.EmployeeReport) decimal.Decimal { return r.VacationDays }},
	{ValueVacationEntitlement, func(r *accounting.EmployeeReport) decimal.Decimal { return r.VacationEntitlement }},
}

// =============================================================================
// READ & DELETE
// =============================================================================

func (s *Snapshotter) Overview(ctx context.Context, auth accounting.AuthContext) ([]BillingPeriod, error) {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return nil, err
	}
	periods, err := s.repos.AllBillingPeriods(ctx)
	if err != nil {
		return nil, accounting.WrapStorage("load billing periods", err)
	}
	return periods, nil
}

func (s *Snapshotter) BillingPeriod(ctx context.Context, auth accounting.AuthContext, id uuid.UUID) (*BillingPeriod, error) {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

func (s *Snapshotter) LatestEndDate(ctx context.Context, auth accounting.AuthContext) (*calendar.Date, error) {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return nil, err
	}
	latest, err := s.repos.LatestBillingPeriodEnd(ctx)
	if err != nil {
		return nil, accounting.WrapStorage("load latest billing period", err)
	}
	return latest, nil
}

// DeleteBillingPeriod soft-deletes one period.
func (s *Snapshotter) DeleteBillingPeriod(ctx context.Context, auth accounting.AuthContext, id uuid.UUID) error {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return err
	}
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repos.DeleteBillingPeriod(ctx, id, s.now().UTC(), auth.Actor()); err != nil {
		return accounting.WrapStorage("delete billing period", err)
	}
	s.log.Info("billing period deleted", zap.Stringer("id", id), zap.String("deleted_by", auth.Actor()))
	return nil
}

// ClearAll soft-deletes every period so billing restarts from 1970-01-02.
func (s *Snapshotter) ClearAll(ctx context.Context, auth accounting.AuthContext) error {
	if err := accounting.RequireHR(ctx, s.authz, auth); err != nil {
		return err
	}
	if err := s.repos.DeleteAllBillingPeriods(ctx, s.now().UTC(), auth.Actor()); err != nil {
		return accounting.WrapStorage("clear billing periods", err)
	}
	s.log.Warn("all billing periods cleared", zap.String("deleted_by", auth.Actor()))
	return nil
}

func (s *Snapshotter) find(ctx context.Context, id uuid.UUID) (*BillingPeriod, error) {
	bp, err := s.repos.FindBillingPeriod(ctx, id)
	if err != nil {
		return nil, accounting.WrapStorage("load billing period", err)
	}
	if bp == nil {
		return nil, &accounting.NotFoundError{Entity: "billing period", ID: id}
	}
	return bp, nil
}
