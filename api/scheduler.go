/*
scheduler.go - Automated billing close and year-end carryover

PURPOSE:
  Closes the billing period of the previous calendar month and updates the
  carryover of the previous calendar year on cron schedules, so payroll
  does not depend on someone clicking "close".

DESIGN:
  - robfig/cron with standard 5-field specs, UTC
  - Each run opens one transaction and uses the system AuthContext
  - A month that is already covered by a period is skipped
  - Carryover runs recompute the closed year and can repeat safely
  - A run that fails rolls back and is retried at the next tick

CONFIGURATION:
  BILLING_CRON="0 2 1 * *"     02:00 UTC on the first day of each month
  CARRYOVER_CRON="0 3 2 1 *"   03:00 UTC on January 2
  empty                        job is not scheduled

USAGE:
  scheduler := NewScheduler(store, logger)
  scheduler.ScheduleBilling("0 2 1 * *")
  scheduler.ScheduleCarryover("0 3 2 1 *")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CreateBillingPeriod and UpdateCarryover endpoints
  - billing/snapshot.go: Snapshotter
  - accounting/carryover.go: CarryoverUpdater
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
	"github.com/warp/workhours-engine/calendar"
	"github.com/warp/workhours-engine/store"
	"go.uber.org/zap"
)

// runTimeout bounds a single scheduled run.
const runTimeout = 5 * time.Minute

type job struct {
	name string
	spec string
	run  func()
}

// Scheduler runs the billing close and the carryover update.
type Scheduler struct {
	store store.TxStore
	base  *zap.Logger
	log   *zap.Logger
	now   func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	jobs    []job
	started bool
}

func NewScheduler(st store.TxStore, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		store: st,
		base:  log,
		log:   log.Named("scheduler"),
		now:   time.Now,
		cron:  cron.New(cron.WithLocation(time.UTC)),
	}
}

// WithClock replaces the clock deciding which month or year is closed.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// ScheduleBilling adds the monthly billing close.
func (s *Scheduler) ScheduleBilling(spec string) error {
	return s.add("billing", spec, s.runBilling)
}

// ScheduleCarryover adds the year-end carryover update.
func (s *Scheduler) ScheduleCarryover(spec string) error {
	return s.add("carryover", spec, s.runCarryover)
}

func (s *Scheduler) add(name, spec string, run func()) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid %s cron %q: %w", name, spec, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("cannot schedule %s job: scheduler already started", name)
	}
	s.jobs = append(s.jobs, job{name: name, spec: spec, run: run})
	return nil
}

// Start schedules the jobs. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", j.name, err)
		}
		s.log.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}
	s.cron.Start()
	s.started = true
	s.log.Info("started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	<-s.cron.Stop().Done()
	s.started = false
	s.log.Info("stopped")
}

func (s *Scheduler) runBilling() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	bp, err := s.RunBilling(ctx)
	switch {
	case err != nil:
		s.log.Error("billing run failed", zap.Error(err))
	case bp == nil:
		s.log.Info("billing run skipped, month already closed")
	default:
		s.log.Info("billing period closed",
			zap.Stringer("billing_period", bp.ID),
			zap.Stringer("start", bp.StartDate),
			zap.Stringer("end", bp.EndDate),
			zap.Int("sales_persons", len(bp.SalesPersons)),
			zap.Duration("duration", time.Since(start)))
	}
}

func (s *Scheduler) runCarryover() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	updated, err := s.RunCarryover(ctx)
	if err != nil {
		s.log.Error("carryover run failed", zap.Error(err))
		return
	}
	s.log.Info("carryover updated",
		zap.Int("year", s.now().UTC().Year()-1),
		zap.Int("sales_persons", len(updated)),
		zap.Duration("duration", time.Since(start)))
}

// RunBilling closes the period ending on the last day of the previous
// month. It returns nil without error when that month is already covered.
func (s *Scheduler) RunBilling(ctx context.Context) (*billing.BillingPeriod, error) {
	end := PreviousMonthEnd(s.now())
	auth := accounting.SystemContext()

	var created *billing.BillingPeriod
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		snap := billing.NewSnapshotter(tx, accounting.NewReporter(tx, accounting.PrivilegeAuthorizer{}, s.base),
			accounting.PrivilegeAuthorizer{}, s.base).WithClock(s.now)

		latest, err := snap.LatestEndDate(ctx, auth)
		if err != nil {
			return err
		}
		if latest != nil && !latest.Before(end) {
			return nil
		}
		created, err = snap.CreateBillingPeriod(ctx, auth, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RunCarryover updates the carryover of the previous UTC year for every
// paid sales person.
func (s *Scheduler) RunCarryover(ctx context.Context) ([]accounting.Carryover, error) {
	year := s.now().UTC().Year() - 1
	auth := accounting.SystemContext()

	var updated []accounting.Carryover
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		reporter := accounting.NewReporter(tx, accounting.PrivilegeAuthorizer{}, s.base)
		u := accounting.NewCarryoverUpdater(tx, reporter, accounting.PrivilegeAuthorizer{}, s.base).WithClock(s.now)

		var err error
		updated, err = u.UpdateCarryoverAllEmployees(ctx, auth, year)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PreviousMonthEnd is the last day of the month before t's month (UTC).
func PreviousMonthEnd(t time.Time) calendar.Date {
	t = t.UTC()
	return calendar.NewDate(t.Year(), t.Month(), 1).AddDays(-1)
}
