/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos. Each scenario creates a sales person with contract,
	slots, bookings and extra hours that demonstrate one accounting rule.

AVAILABLE SCENARIOS:

	full-time-2024:          40h Mon-Fri contract, 40h booked every week, balance 0
	mid-week-start:          Contract starting Wednesday of week 10, prorated to 3/5
	part-time-with-absences: 24h over three days with vacation, sick leave and on-call time

HOW SCENARIOS WORK:
 1. Open one transaction
 2. Create slots valid for the scenario year
 3. Create the sales person and contract
 4. Book every week of the contract
 5. Optionally add extra hours

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-time-2024"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, tx, now)
 3. Add case to scenarioLoaders

NOTE:

	Scenarios add data; they never delete. Loading one twice creates a
	second sales person. HR only.

SEE ALSO:
  - handlers.go: Handler context
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
	"github.com/warp/workhours-engine/store"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "full-time-2024",
		Name:        "Full Time 2024",
		Description: "40h Mon-Fri contract for all of 2024, 40h booked every week",
	},
	{
		ID:          "mid-week-start",
		Name:        "Mid-Week Start",
		Description: "Contract starting Wednesday of week 10 2024, first week expects 24h",
	},
	{
		ID:          "part-time-with-absences",
		Name:        "Part Time With Absences",
		Description: "24h Mon-Wed contract with vacation, sick leave, a holiday and on-call hours",
	},
}

type scenarioLoader func(ctx context.Context, tx store.Tx, now time.Time) (uuid.UUID, error)

var scenarioLoaders = map[string]scenarioLoader{
	"full-time-2024":          loadFullTimeScenario,
	"mid-week-start":          loadMidWeekStartScenario,
	"part-time-with-absences": loadPartTimeScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	var id uuid.UUID
	err := h.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := accounting.RequireHR(ctx, h.Authz, AuthFrom(ctx)); err != nil {
			return err
		}
		var err error
		id, err = load(ctx, tx, h.now())
		return accounting.WrapStorage("load scenario", err)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.log.Info("scenario loaded", zap.String("scenario", req.ScenarioID), zap.Stringer("sales_person", id))
	writeJSON(w, http.StatusOK, LoadScenarioResponse{Scenario: req.ScenarioID, SalesPersonIDs: []uuid.UUID{id}})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadFullTimeScenario: 40h contract for 2024 with 8h booked Mon-Fri in
// every ISO week of the year. The yearly balance is 0.
func loadFullTimeScenario(ctx context.Context, tx store.Tx, now time.Time) (uuid.UUID, error) {
	b := scenarioBuilder{ctx: ctx, tx: tx, now: now}
	slots := b.daySlots(calendar.FirstDayOfYear(2024), accounting.MondayToFriday.List())
	sp := b.salesPerson("Alice Full-Time", "#4f46e5")
	b.contract(sp, decimal.NewFromInt(40), calendar.NewWeek(2024, 1), calendar.Monday,
		calendar.NewWeek(2024, 52), calendar.Sunday, accounting.MondayToFriday, 30)
	b.bookWeeks(sp, slots, calendar.NewWeek(2024, 1), calendar.NewWeek(2024, 52))
	return sp, b.err
}

// loadMidWeekStartScenario: the contract starts on Wednesday of week 10,
// so that week expects 40 * 3/5 = 24h and only Wed-Fri are booked.
func loadMidWeekStartScenario(ctx context.Context, tx store.Tx, now time.Time) (uuid.UUID, error) {
	b := scenarioBuilder{ctx: ctx, tx: tx, now: now}
	slots := b.daySlots(calendar.FirstDayOfYear(2024), accounting.MondayToFriday.List())
	sp := b.salesPerson("Ben Mid-Week", "#059669")
	b.contract(sp, decimal.NewFromInt(40), calendar.NewWeek(2024, 10), calendar.Wednesday,
		calendar.NewWeek(2024, 52), calendar.Sunday, accounting.MondayToFriday, 30)

	for _, day := range []calendar.DayOfWeek{calendar.Wednesday, calendar.Thursday, calendar.Friday} {
		b.booking(sp, slots[day], calendar.NewWeek(2024, 10))
	}
	b.bookWeeks(sp, slots, calendar.NewWeek(2024, 11), calendar.NewWeek(2024, 52))
	return sp, b.err
}

// loadPartTimeScenario: 24h over Mon-Wed, booked through Q1 except on
// absence days, plus on-call hours that do not modify the balance.
func loadPartTimeScenario(ctx context.Context, tx store.Tx, now time.Time) (uuid.UUID, error) {
	b := scenarioBuilder{ctx: ctx, tx: tx, now: now}
	days := []calendar.DayOfWeek{calendar.Monday, calendar.Tuesday, calendar.Wednesday}
	slots := b.daySlots(calendar.FirstDayOfYear(2024), days)
	sp := b.salesPerson("Clara Part-Time", "#dc2626")
	b.contract(sp, decimal.NewFromInt(24), calendar.NewWeek(2024, 1), calendar.Monday,
		calendar.NewWeek(2024, 52), calendar.Sunday, accounting.NewWeekdays(days...), 18)
	vacation := []calendar.Date{calendar.NewDate(2024, time.February, 12), calendar.NewDate(2024, time.February, 13)}
	sick := calendar.NewDate(2024, time.March, 4)
	b.bookWeeks(sp, slots, calendar.NewWeek(2024, 1), calendar.NewWeek(2024, 13), append(vacation, sick)...)

	onCall := accounting.CustomExtraHoursDefinition{
		ID:                     uuid.New(),
		Name:                   "on call",
		Description:            "Weekend on-call availability",
		AssignedSalesPersonIDs: []uuid.UUID{sp},
		Created:                now,
		Version:                uuid.New(),
	}
	b.do(func() error { return tx.SaveCustomExtraHours(ctx, onCall) })

	for _, day := range vacation {
		b.extra(sp, 8, accounting.Vacation, "Ski trip", day)
	}
	b.extra(sp, 8, accounting.SickLeave, "Flu", sick)
	b.extra(sp, 8, accounting.Holiday, "Easter Monday", calendar.NewDate(2024, time.April, 1))
	b.extra(sp, 4, accounting.ExtraWork, "Inventory", calendar.NewDate(2024, time.March, 20))
	b.extra(sp, 6, accounting.CustomCategory(onCall), "Weekend duty", calendar.NewDate(2024, time.March, 23))
	return sp, b.err
}

// =============================================================================
// BUILDER
// =============================================================================

// scenarioBuilder records the first error and turns later calls into no-ops.
type scenarioBuilder struct {
	ctx context.Context
	tx  store.Tx
	now time.Time
	err error
}

func (b *scenarioBuilder) do(fn func() error) {
	if b.err == nil {
		b.err = fn()
	}
}

// daySlots creates one 09:00-17:00 slot per day.
func (b *scenarioBuilder) daySlots(validFrom calendar.Date, days []calendar.DayOfWeek) map[calendar.DayOfWeek]uuid.UUID {
	ids := make(map[calendar.DayOfWeek]uuid.UUID, len(days))
	for _, d := range days {
		slot := accounting.Slot{
			ID:        uuid.New(),
			DayOfWeek: d,
			From:      9 * time.Hour,
			To:        17 * time.Hour,
			ValidFrom: validFrom,
			Version:   uuid.New(),
		}
		ids[d] = slot.ID
		b.do(func() error { return b.tx.SaveSlot(b.ctx, slot) })
	}
	return ids
}

func (b *scenarioBuilder) salesPerson(name, background string) uuid.UUID {
	paid := true
	sp := accounting.SalesPerson{ID: uuid.New(), Name: name, Background: background, IsPaid: &paid, Version: uuid.New()}
	b.do(func() error { return b.tx.SaveSalesPerson(b.ctx, sp) })
	return sp.ID
}

func (b *scenarioBuilder) contract(sp uuid.UUID, hours decimal.Decimal, from calendar.Week, fromDay calendar.DayOfWeek,
	to calendar.Week, toDay calendar.DayOfWeek, workdays accounting.Weekdays, vacationDays int) {
	wd := accounting.WorkDetails{
		ID:              uuid.New(),
		SalesPersonID:   sp,
		ExpectedHours:   hours,
		FromDayOfWeek:   fromDay,
		FromWeek:        from.Week,
		FromYear:        from.Year,
		ToDayOfWeek:     toDay,
		ToWeek:          to.Week,
		ToYear:          to.Year,
		WorkdaysPerWeek: workdays.Count(),
		Workdays:        workdays,
		VacationDays:    vacationDays,
		Created:         b.now,
		Version:         uuid.New(),
	}
	b.do(func() error { return b.tx.SaveWorkDetails(b.ctx, wd) })
}

func (b *scenarioBuilder) booking(sp, slot uuid.UUID, week calendar.Week) {
	bk := accounting.Booking{
		ID:            uuid.New(),
		SalesPersonID: sp,
		SlotID:        slot,
		CalendarWeek:  week.Week,
		Year:          week.Year,
		Created:       b.now,
		Version:       uuid.New(),
	}
	b.do(func() error { return b.tx.SaveBooking(b.ctx, bk) })
}

// bookWeeks books every slot in each week of [from, to], leaving out the
// except days.
func (b *scenarioBuilder) bookWeeks(sp uuid.UUID, slots map[calendar.DayOfWeek]uuid.UUID, from, to calendar.Week, except ...calendar.Date) {
	skip := make(map[string]bool, len(except))
	for _, d := range except {
		skip[d.String()] = true
	}
	for _, week := range from.Until(to) {
		for d := calendar.Monday; d <= calendar.Sunday; d++ {
			slot, ok := slots[d]
			if !ok {
				continue
			}
			day, err := week.Date(d)
			if err != nil {
				b.do(func() error { return err })
				return
			}
			if !skip[day.String()] {
				b.booking(sp, slot, week)
			}
		}
	}
}

func (b *scenarioBuilder) extra(sp uuid.UUID, hours int64, cat accounting.ExtraHoursCategory, desc string, day calendar.Date) {
	eh := accounting.ExtraHours{
		ID:            uuid.New(),
		SalesPersonID: sp,
		Amount:        decimal.NewFromInt(hours),
		Category:      cat,
		Description:   desc,
		DateTime:      day.Time().Add(9 * time.Hour),
		Created:       b.now,
		Version:       uuid.New(),
	}
	b.do(func() error { return b.tx.SaveExtraHours(b.ctx, eh) })
}
