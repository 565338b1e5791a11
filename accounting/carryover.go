/*
carryover.go - Year-end carryover of hours and vacation days

A Carryover records what a sales person takes from one calendar year into
the next:

  CarryoverHours  balance of the year plus the carryover received from
                  the year before
  Vacation        vacation entitlement of the year (including the days
                  carried into it) minus the vacation days taken, rounded

Reports of year Y read the carryover of Y-1. The hours are shown next to
the balance and never added to it, so balance = overall - expected holds
for every report. The vacation days are added to the entitlement.

The updater recomputes the carryover of a closed year from the year's
report. Running it twice for the same year gives the same result, which
lets a scheduler repeat it safely.
*/
package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/calendar"
	"go.uber.org/zap"
)

type Carryover struct {
	SalesPersonID  uuid.UUID       `json:"sales_person_id"`
	Year           int             `json:"year"`
	CarryoverHours decimal.Decimal `json:"carryover_hours"`
	Vacation       int             `json:"vacation"`
	Created        time.Time       `json:"created"`
	Deleted        *time.Time      `json:"deleted,omitempty"`
	Version        uuid.UUID       `json:"version"`
}

// CarryoverStore is what the updater reads and writes.
type CarryoverStore interface {
	SalesPersonRepository
	CarryoverRepository
	SaveCarryover(ctx context.Context, c Carryover) error
}

type CarryoverUpdater struct {
	repos    CarryoverStore
	reporter *Reporter
	authz    Authorizer
	now      func() time.Time
	log      *zap.Logger
}

func NewCarryoverUpdater(repos CarryoverStore, reporter *Reporter, authz Authorizer, log *zap.Logger) *CarryoverUpdater {
	if log == nil {
		log = zap.NewNop()
	}
	return &CarryoverUpdater{
		repos:    repos,
		reporter: reporter,
		authz:    authz,
		now:      time.Now,
		log:      log.Named("carryover"),
	}
}

// WithClock replaces the clock stamping created carryovers.
func (u *CarryoverUpdater) WithClock(now func() time.Time) *CarryoverUpdater {
	u.now = now
	return u
}

// Carryover returns the recorded carryover of year, nil if there is none.
// HR or self.
func (u *CarryoverUpdater) Carryover(ctx context.Context, auth AuthContext, salesPersonID uuid.UUID, year int) (*Carryover, error) {
	if err := RequireHROrSelf(ctx, u.authz, auth, salesPersonID); err != nil {
		return nil, err
	}
	c, err := u.repos.FindCarryover(ctx, salesPersonID, year)
	if err != nil {
		return nil, WrapStorage("load carryover", err)
	}
	return c, nil
}

// SetCarryover stores a manually corrected carryover. HR only.
func (u *CarryoverUpdater) SetCarryover(ctx context.Context, auth AuthContext, c Carryover) (*Carryover, error) {
	if err := RequireHR(ctx, u.authz, auth); err != nil {
		return nil, err
	}
	if err := u.requireSalesPerson(ctx, c.SalesPersonID); err != nil {
		return nil, err
	}
	c.Created = u.now().UTC()
	c.Deleted = nil
	c.Version = uuid.New()
	if err := u.repos.SaveCarryover(ctx, c); err != nil {
		return nil, WrapStorage("save carryover", err)
	}
	return &c, nil
}

// UpdateCarryover recomputes the carryover of year from the full year
// report of the sales person. HR only.
func (u *CarryoverUpdater) UpdateCarryover(ctx context.Context, auth AuthContext, salesPersonID uuid.UUID, year int) (*Carryover, error) {
	if err := RequireHR(ctx, u.authz, auth); err != nil {
		return nil, err
	}
	report, err := u.reporter.ReportForEmployee(ctx, auth, salesPersonID, year, calendar.WeeksInYear(year))
	if err != nil {
		return nil, err
	}

	c := Carryover{
		SalesPersonID:  salesPersonID,
		Year:           year,
		CarryoverHours: report.BalanceHours.Add(report.CarryoverHours),
		Vacation:       int(report.VacationEntitlement.Sub(report.VacationDays).Round(0).IntPart()),
		Created:        u.now().UTC(),
		Version:        uuid.New(),
	}
	if err := u.repos.SaveCarryover(ctx, c); err != nil {
		return nil, WrapStorage("save carryover", err)
	}
	u.log.Info("carryover updated",
		zap.Stringer("sales_person", salesPersonID),
		zap.Int("year", year),
		zap.Stringer("hours", c.CarryoverHours),
		zap.Int("vacation", c.Vacation))
	return &c, nil
}

// UpdateCarryoverAllEmployees runs UpdateCarryover for every paid sales
// person, in name order. The first failure aborts the run.
func (u *CarryoverUpdater) UpdateCarryoverAllEmployees(ctx context.Context, auth AuthContext, year int) ([]Carryover, error) {
	if err := RequireHR(ctx, u.authz, auth); err != nil {
		return nil, err
	}
	persons, err := u.repos.AllSalesPersons(ctx)
	if err != nil {
		return nil, WrapStorage("load sales persons", err)
	}
	sortSalesPersons(persons)

	var result []Carryover
	for _, p := range persons {
		if !p.Paid() || p.Deleted != nil {
			continue
		}
		c, err := u.UpdateCarryover(ctx, auth, p.ID, year)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, nil
}

func (u *CarryoverUpdater) requireSalesPerson(ctx context.Context, id uuid.UUID) error {
	p, err := u.repos.FindSalesPerson(ctx, id)
	if err != nil {
		return WrapStorage("load sales person", err)
	}
	if p == nil {
		return &NotFoundError{Entity: "sales person", ID: id}
	}
	return nil
}
