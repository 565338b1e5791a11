// Package memory provides an in-memory store.Tx implementation (for testing/dev).
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
	"github.com/warp/workhours-engine/calendar"
	"github.com/warp/workhours-engine/store"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data data
}

type data struct {
	salesPersons map[uuid.UUID]accounting.SalesPerson
	workDetails  map[uuid.UUID]accounting.WorkDetails
	extraHours   map[uuid.UUID]accounting.ExtraHours
	customExtra  map[uuid.UUID]accounting.CustomExtraHoursDefinition
	slots        map[uuid.UUID]accounting.Slot
	bookings     map[uuid.UUID]accounting.Booking
	periods      map[uuid.UUID]billing.BillingPeriod
	templates    map[uuid.UUID]billing.TextTemplate
	carryovers   map[carryoverKey]accounting.Carryover
}

type carryoverKey struct {
	salesPersonID uuid.UUID
	year          int
}

func New() *Store {
	return &Store{data: data{
		salesPersons: make(map[uuid.UUID]accounting.SalesPerson),
		workDetails:  make(map[uuid.UUID]accounting.WorkDetails),
		extraHours:   make(map[uuid.UUID]accounting.ExtraHours),
		customExtra:  make(map[uuid.UUID]accounting.CustomExtraHoursDefinition),
		slots:        make(map[uuid.UUID]accounting.Slot),
		bookings:     make(map[uuid.UUID]accounting.Booking),
		periods:      make(map[uuid.UUID]billing.BillingPeriod),
		templates:    make(map[uuid.UUID]billing.TextTemplate),
		carryovers:   make(map[carryoverKey]accounting.Carryover),
	}}
}

var _ store.TxStore = (*Store)(nil)
var _ store.Tx = (*Store)(nil)

// WithTx runs fn against the store itself. Transactions are serialized;
// a failing fn restores the state from before the call.
func (s *Store) WithTx(_ context.Context, fn func(store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) snapshot() data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return data{
		salesPersons: maps.Clone(s.data.salesPersons),
		workDetails:  maps.Clone(s.data.workDetails),
		extraHours:   maps.Clone(s.data.extraHours),
		customExtra:  maps.Clone(s.data.customExtra),
		slots:        maps.Clone(s.data.slots),
		bookings:     maps.Clone(s.data.bookings),
		periods:      maps.Clone(s.data.periods),
		templates:    maps.Clone(s.data.templates),
		carryovers:   maps.Clone(s.data.carryovers),
	}
}

func (s *Store) restore(snap data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snap
}

// =============================================================================
// SALES PERSONS & CONTRACTS
// =============================================================================

func (s *Store) AllSalesPersons(_ context.Context) ([]accounting.SalesPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []accounting.SalesPerson
	for _, sp := range s.data.salesPersons {
		if sp.Deleted == nil {
			result = append(result, sp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (s *Store) FindSalesPerson(_ context.Context, id uuid.UUID) (*accounting.SalesPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.data.salesPersons[id]
	if !ok || sp.Deleted != nil {
		return nil, nil
	}
	return &sp, nil
}

func (s *Store) SaveSalesPerson(_ context.Context, sp accounting.SalesPerson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.salesPersons[sp.ID] = sp
	return nil
}

func (s *Store) FindWorkDetailsBySalesPerson(_ context.Context, salesPersonID uuid.UUID) ([]accounting.WorkDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workDetailsLocked(func(wd accounting.WorkDetails) bool { return wd.SalesPersonID == salesPersonID }), nil
}

func (s *Store) FindWorkDetailsForWeek(_ context.Context, week calendar.Week) ([]accounting.WorkDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workDetailsLocked(func(wd accounting.WorkDetails) bool { return wd.CoversWeek(week) }), nil
}

func (s *Store) workDetailsLocked(match func(accounting.WorkDetails) bool) []accounting.WorkDetails {
	var result []accounting.WorkDetails
	for _, wd := range s.data.workDetails {
		if wd.Deleted == nil && match(wd) {
			result = append(result, wd)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].FirstWeek().Compare(result[j].FirstWeek()); c != 0 {
			return c < 0
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (s *Store) SaveWorkDetails(_ context.Context, wd accounting.WorkDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.workDetails[wd.ID] = wd
	return nil
}

// =============================================================================
// SHIFT PLAN
// =============================================================================

func (s *Store) FindShiftplanHours(_ context.Context, salesPersonID uuid.UUID, from, to calendar.Week) ([]accounting.ShiftplanHoursEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shiftplanLocked(func(b accounting.Booking) bool {
		w := b.Week()
		return b.SalesPersonID == salesPersonID && !w.Before(from) && !w.After(to)
	}), nil
}

func (s *Store) FindShiftplanHoursForWeek(_ context.Context, week calendar.Week) ([]accounting.ShiftplanHoursEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shiftplanLocked(func(b accounting.Booking) bool { return b.Week() == week }), nil
}

func (s *Store) shiftplanLocked(match func(accounting.Booking) bool) []accounting.ShiftplanHoursEntry {
	var bookings []accounting.Booking
	for _, b := range s.data.bookings {
		if match(b) {
			bookings = append(bookings, b)
		}
	}
	return accounting.AggregateBookings(bookings, s.data.slots)
}

func (s *Store) SaveSlot(_ context.Context, slot accounting.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.slots[slot.ID] = slot
	return nil
}

func (s *Store) FindSlot(_ context.Context, id uuid.UUID) (*accounting.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.data.slots[id]
	if !ok || slot.Deleted != nil {
		return nil, nil
	}
	return &slot, nil
}

func (s *Store) SaveBooking(_ context.Context, b accounting.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.bookings {
		if existing.ID != b.ID && existing.Deleted == nil &&
			existing.SalesPersonID == b.SalesPersonID && existing.SlotID == b.SlotID &&
			existing.Week() == b.Week() {
			return accounting.ErrDuplicateBooking
		}
	}
	s.data.bookings[b.ID] = b
	return nil
}

func (s *Store) DeleteBooking(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data.bookings[id]
	if !ok || b.Deleted != nil {
		return &accounting.NotFoundError{Entity: "booking", ID: id}
	}
	b.Deleted = &at
	s.data.bookings[id] = b
	return nil
}

// =============================================================================
// EXTRA HOURS
// =============================================================================

func (s *Store) FindExtraHoursForYear(ctx context.Context, salesPersonID uuid.UUID, year, untilWeek int) ([]accounting.ExtraHours, error) {
	r, err := accounting.YearToWeekRange(year, untilWeek)
	if err != nil {
		return nil, err
	}
	return s.FindExtraHours(ctx, salesPersonID, r)
}

func (s *Store) FindExtraHours(_ context.Context, salesPersonID uuid.UUID, r calendar.Range) ([]accounting.ExtraHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extraHoursLocked(func(e accounting.ExtraHours) bool {
		return e.SalesPersonID == salesPersonID && r.Contains(e.Date())
	}), nil
}

func (s *Store) FindExtraHoursForWeek(_ context.Context, week calendar.Week) ([]accounting.ExtraHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extraHoursLocked(func(e accounting.ExtraHours) bool { return e.Date().ISOWeek() == week }), nil
}

// extraHoursLocked resolves custom categories against their current
// definition, as a join would.
func (s *Store) extraHoursLocked(match func(accounting.ExtraHours) bool) []accounting.ExtraHours {
	var result []accounting.ExtraHours
	for _, e := range s.data.extraHours {
		if e.Deleted != nil || !match(e) {
			continue
		}
		if e.Category.Kind == accounting.KindCustom && e.Category.Custom != nil {
			if def, ok := s.data.customExtra[e.Category.Custom.ID]; ok {
				e.Category = accounting.CustomCategory(def)
			}
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DateTime.Equal(result[j].DateTime) {
			return result[i].DateTime.Before(result[j].DateTime)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (s *Store) SaveExtraHours(_ context.Context, eh accounting.ExtraHours) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.extraHours[eh.ID] = eh
	return nil
}

func (s *Store) SaveCustomExtraHours(_ context.Context, def accounting.CustomExtraHoursDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.customExtra[def.ID] = def
	return nil
}

func (s *Store) FindCustomExtraHours(_ context.Context, id uuid.UUID) (*accounting.CustomExtraHoursDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.data.customExtra[id]
	if !ok || def.Deleted != nil {
		return nil, nil
	}
	return &def, nil
}

// =============================================================================
// CARRYOVER
// =============================================================================

func (s *Store) FindCarryover(_ context.Context, salesPersonID uuid.UUID, year int) (*accounting.Carryover, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data.carryovers[carryoverKey{salesPersonID, year}]
	if !ok || c.Deleted != nil {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) SaveCarryover(_ context.Context, c accounting.Carryover) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.carryovers[carryoverKey{c.SalesPersonID, c.Year}] = c
	return nil
}

// =============================================================================
// BILLING PERIODS
// =============================================================================

func (s *Store) LatestBillingPeriodEnd(_ context.Context) (*calendar.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *calendar.Date
	for _, bp := range s.data.periods {
		if bp.Deleted != nil {
			continue
		}
		if latest == nil || bp.EndDate.After(*latest) {
			end := bp.EndDate
			latest = &end
		}
	}
	return latest, nil
}

func (s *Store) AllBillingPeriods(_ context.Context) ([]billing.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []billing.BillingPeriod
	for _, bp := range s.data.periods {
		if bp.Deleted != nil {
			continue
		}
		bp.SalesPersons = nil
		result = append(result, bp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

func (s *Store) FindBillingPeriod(_ context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bp, ok := s.data.periods[id]
	if !ok || bp.Deleted != nil {
		return nil, nil
	}
	var persons []billing.BillingPeriodSalesPerson
	for _, sp := range bp.SalesPersons {
		if sp.Deleted == nil {
			persons = append(persons, sp)
		}
	}
	bp.SalesPersons = persons
	return &bp, nil
}

func (s *Store) CreateBillingPeriod(_ context.Context, bp billing.BillingPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bp.SalesPersons = append([]billing.BillingPeriodSalesPerson(nil), bp.SalesPersons...)
	s.data.periods[bp.ID] = bp
	return nil
}

func (s *Store) DeleteBillingPeriod(_ context.Context, id uuid.UUID, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp, ok := s.data.periods[id]
	if !ok || bp.Deleted != nil {
		return &accounting.NotFoundError{Entity: "billing period", ID: id}
	}
	s.data.periods[id] = softDelete(bp, at, by)
	return nil
}

func (s *Store) DeleteAllBillingPeriods(_ context.Context, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, bp := range s.data.periods {
		if bp.Deleted == nil {
			s.data.periods[id] = softDelete(bp, at, by)
		}
	}
	return nil
}

func softDelete(bp billing.BillingPeriod, at time.Time, by string) billing.BillingPeriod {
	bp.Deleted, bp.DeletedBy = &at, &by
	persons := make([]billing.BillingPeriodSalesPerson, len(bp.SalesPersons))
	for i, sp := range bp.SalesPersons {
		if sp.Deleted == nil {
			sp.Deleted, sp.DeletedBy = &at, &by
		}
		persons[i] = sp
	}
	bp.SalesPersons = persons
	return bp
}

// =============================================================================
// TEXT TEMPLATES
// =============================================================================

func (s *Store) FindTextTemplate(_ context.Context, id uuid.UUID) (*billing.TextTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data.templates[id]
	if !ok || t.Deleted != nil {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) SaveTextTemplate(_ context.Context, t billing.TextTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.templates[t.ID] = t
	return nil
}
