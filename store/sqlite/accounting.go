package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
)

// weekKey orders (year, week) pairs as year*100+week.
func weekKey(w calendar.Week) int { return w.Year*100 + w.Week }

// =============================================================================
// SALES PERSONS
// =============================================================================

const salesPersonColumns = `id, name, background, is_paid, inactive, deleted, version`

func (ts *txStore) AllSalesPersons(ctx context.Context) ([]accounting.SalesPerson, error) {
	var rows []salesPersonRow
	err := ts.q.SelectContext(ctx, &rows,
		`SELECT `+salesPersonColumns+` FROM sales_person WHERE deleted IS NULL ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales persons: %w", err)
	}
	result := make([]accounting.SalesPerson, len(rows))
	for i, r := range rows {
		result[i] = r.toDomain()
	}
	return result, nil
}

func (ts *txStore) FindSalesPerson(ctx context.Context, id uuid.UUID) (*accounting.SalesPerson, error) {
	var row salesPersonRow
	found, err := ts.get(ctx, &row,
		`SELECT `+salesPersonColumns+` FROM sales_person WHERE id = ? AND deleted IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales person %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	sp := row.toDomain()
	return &sp, nil
}

func (ts *txStore) SaveSalesPerson(ctx context.Context, sp accounting.SalesPerson) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO sales_person (`+salesPersonColumns+`)
		VALUES (:id, :name, :background, :is_paid, :inactive, :deleted, :version)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			background = excluded.background,
			is_paid = excluded.is_paid,
			inactive = excluded.inactive,
			deleted = excluded.deleted,
			version = excluded.version`,
		toSalesPersonRow(sp))
	if err != nil {
		return fmt.Errorf("failed to save sales person %s: %w", sp.ID, err)
	}
	return nil
}

// =============================================================================
// WORK DETAILS
// =============================================================================

const workDetailsColumns = `id, sales_person_id, expected_hours,
	from_day_of_week, from_calendar_week, from_year,
	to_day_of_week, to_calendar_week, to_year,
	workdays_per_week, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
	vacation_days, created, deleted, version`

func (ts *txStore) FindWorkDetailsBySalesPerson(ctx context.Context, salesPersonID uuid.UUID) ([]accounting.WorkDetails, error) {
	return ts.selectWorkDetails(ctx, `
		SELECT `+workDetailsColumns+` FROM employee_work_details
		WHERE sales_person_id = ? AND deleted IS NULL
		ORDER BY from_year, from_calendar_week, id`, salesPersonID)
}

func (ts *txStore) FindWorkDetailsForWeek(ctx context.Context, week calendar.Week) ([]accounting.WorkDetails, error) {
	key := weekKey(week)
	return ts.selectWorkDetails(ctx, `
		SELECT `+workDetailsColumns+` FROM employee_work_details
		WHERE deleted IS NULL
		  AND from_year * 100 + from_calendar_week <= ?
		  AND to_year * 100 + to_calendar_week >= ?
		ORDER BY sales_person_id, from_year, from_calendar_week, id`, key, key)
}

func (ts *txStore) selectWorkDetails(ctx context.Context, query string, args ...any) ([]accounting.WorkDetails, error) {
	var rows []workDetailsRow
	if err := ts.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load work details: %w", err)
	}
	result := make([]accounting.WorkDetails, 0, len(rows))
	for _, r := range rows {
		wd, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, wd)
	}
	return result, nil
}

func (ts *txStore) SaveWorkDetails(ctx context.Context, wd accounting.WorkDetails) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO employee_work_details (`+workDetailsColumns+`)
		VALUES (:id, :sales_person_id, :expected_hours,
			:from_day_of_week, :from_calendar_week, :from_year,
			:to_day_of_week, :to_calendar_week, :to_year,
			:workdays_per_week, :monday, :tuesday, :wednesday, :thursday, :friday, :saturday, :sunday,
			:vacation_days, :created, :deleted, :version)
		ON CONFLICT(id) DO UPDATE SET
			expected_hours = excluded.expected_hours,
			from_day_of_week = excluded.from_day_of_week,
			from_calendar_week = excluded.from_calendar_week,
			from_year = excluded.from_year,
			to_day_of_week = excluded.to_day_of_week,
			to_calendar_week = excluded.to_calendar_week,
			to_year = excluded.to_year,
			workdays_per_week = excluded.workdays_per_week,
			monday = excluded.monday,
			tuesday = excluded.tuesday,
			wednesday = excluded.wednesday,
			thursday = excluded.thursday,
			friday = excluded.friday,
			saturday = excluded.saturday,
			sunday = excluded.sunday,
			vacation_days = excluded.vacation_days,
			deleted = excluded.deleted,
			version = excluded.version`,
		toWorkDetailsRow(wd))
	if err != nil {
		return fmt.Errorf("failed to save work details %s: %w", wd.ID, err)
	}
	return nil
}

// =============================================================================
// EXTRA HOURS
// =============================================================================

const extraHoursSelect = `
	SELECT e.id, e.sales_person_id, e.amount, e.category, e.custom_extra_hours_id,
		e.description, e.date_time, e.day, e.created, e.deleted, e.version,
		c.name AS custom_name,
		c.description AS custom_description,
		c.modifies_balance AS custom_modifies_balance,
		c.assigned_sales_person_ids AS custom_assigned_sales_person_ids
	FROM extra_hours e
	LEFT JOIN custom_extra_hours c ON c.id = e.custom_extra_hours_id`

func (ts *txStore) FindExtraHoursForYear(ctx context.Context, salesPersonID uuid.UUID, year, untilWeek int) ([]accounting.ExtraHours, error) {
	r, err := accounting.YearToWeekRange(year, untilWeek)
	if err != nil {
		return nil, err
	}
	return ts.FindExtraHours(ctx, salesPersonID, r)
}

func (ts *txStore) FindExtraHours(ctx context.Context, salesPersonID uuid.UUID, r calendar.Range) ([]accounting.ExtraHours, error) {
	return ts.selectExtraHours(ctx, extraHoursSelect+`
		WHERE e.sales_person_id = ? AND e.deleted IS NULL AND e.day BETWEEN ? AND ?
		ORDER BY e.date_time, e.id`, salesPersonID, r.From, r.To)
}

func (ts *txStore) FindExtraHoursForWeek(ctx context.Context, week calendar.Week) ([]accounting.ExtraHours, error) {
	span, err := week.Span()
	if err != nil {
		return nil, err
	}
	return ts.selectExtraHours(ctx, extraHoursSelect+`
		WHERE e.deleted IS NULL AND e.day BETWEEN ? AND ?
		ORDER BY e.sales_person_id, e.date_time, e.id`, span.From, span.To)
}

func (ts *txStore) selectExtraHours(ctx context.Context, query string, args ...any) ([]accounting.ExtraHours, error) {
	var rows []extraHoursRow
	if err := ts.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load extra hours: %w", err)
	}
	result := make([]accounting.ExtraHours, 0, len(rows))
	for _, r := range rows {
		eh, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, eh)
	}
	return result, nil
}

func (ts *txStore) SaveExtraHours(ctx context.Context, eh accounting.ExtraHours) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO extra_hours (id, sales_person_id, amount, category, custom_extra_hours_id,
			description, date_time, day, created, deleted, version)
		VALUES (:id, :sales_person_id, :amount, :category, :custom_extra_hours_id,
			:description, :date_time, :day, :created, :deleted, :version)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			category = excluded.category,
			custom_extra_hours_id = excluded.custom_extra_hours_id,
			description = excluded.description,
			date_time = excluded.date_time,
			day = excluded.day,
			deleted = excluded.deleted,
			version = excluded.version`,
		toExtraHoursRow(eh))
	if err != nil {
		return fmt.Errorf("failed to save extra hours %s: %w", eh.ID, err)
	}
	return nil
}

const customExtraHoursColumns = `id, name, description, modifies_balance, assigned_sales_person_ids, created, deleted, version`

func (ts *txStore) SaveCustomExtraHours(ctx context.Context, def accounting.CustomExtraHoursDefinition) error {
	row, err := toCustomExtraHoursRow(def)
	if err != nil {
		return fmt.Errorf("failed to encode custom extra hours %s: %w", def.ID, err)
	}
	_, err = ts.q.NamedExecContext(ctx, `
		INSERT INTO custom_extra_hours (`+customExtraHoursColumns+`)
		VALUES (:id, :name, :description, :modifies_balance, :assigned_sales_person_ids, :created, :deleted, :version)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			modifies_balance = excluded.modifies_balance,
			assigned_sales_person_ids = excluded.assigned_sales_person_ids,
			deleted = excluded.deleted,
			version = excluded.version`,
		row)
	if err != nil {
		return fmt.Errorf("failed to save custom extra hours %s: %w", def.ID, err)
	}
	return nil
}

func (ts *txStore) FindCustomExtraHours(ctx context.Context, id uuid.UUID) (*accounting.CustomExtraHoursDefinition, error) {
	var row customExtraHoursRow
	found, err := ts.get(ctx, &row,
		`SELECT `+customExtraHoursColumns+` FROM custom_extra_hours WHERE id = ? AND deleted IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load custom extra hours %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	def, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// =============================================================================
// SLOTS & BOOKINGS
// =============================================================================

const slotColumns = `id, day_of_week, from_minutes, to_minutes, valid_from, valid_to, deleted, version`
const bookingColumns = `id, sales_person_id, slot_id, calendar_week, year, created, deleted, version`

func (ts *txStore) SaveSlot(ctx context.Context, slot accounting.Slot) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO slot (`+slotColumns+`)
		VALUES (:id, :day_of_week, :from_minutes, :to_minutes, :valid_from, :valid_to, :deleted, :version)
		ON CONFLICT(id) DO UPDATE SET
			day_of_week = excluded.day_of_week,
			from_minutes = excluded.from_minutes,
			to_minutes = excluded.to_minutes,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			deleted = excluded.deleted,
			version = excluded.version`,
		toSlotRow(slot))
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot.ID, err)
	}
	return nil
}

func (ts *txStore) FindSlot(ctx context.Context, id uuid.UUID) (*accounting.Slot, error) {
	var row slotRow
	found, err := ts.get(ctx, &row, `SELECT `+slotColumns+` FROM slot WHERE id = ? AND deleted IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	slot, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (ts *txStore) SaveBooking(ctx context.Context, b accounting.Booking) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO booking (`+bookingColumns+`)
		VALUES (:id, :sales_person_id, :slot_id, :calendar_week, :year, :created, :deleted, :version)`,
		bookingRow(b))
	if isUniqueConstraintError(err) {
		return accounting.ErrDuplicateBooking
	}
	if err != nil {
		return fmt.Errorf("failed to save booking %s: %w", b.ID, err)
	}
	return nil
}

func (ts *txStore) DeleteBooking(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := ts.q.ExecContext(ctx,
		`UPDATE booking SET deleted = ? WHERE id = ? AND deleted IS NULL`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	return requireAffected(res, "booking", id)
}

func (ts *txStore) FindShiftplanHours(ctx context.Context, salesPersonID uuid.UUID, from, to calendar.Week) ([]accounting.ShiftplanHoursEntry, error) {
	return ts.shiftplan(ctx, `
		SELECT `+bookingColumns+` FROM booking
		WHERE sales_person_id = ? AND deleted IS NULL
		  AND year * 100 + calendar_week BETWEEN ? AND ?`,
		salesPersonID, weekKey(from), weekKey(to))
}

func (ts *txStore) FindShiftplanHoursForWeek(ctx context.Context, week calendar.Week) ([]accounting.ShiftplanHoursEntry, error) {
	return ts.shiftplan(ctx, `
		SELECT `+bookingColumns+` FROM booking
		WHERE year = ? AND calendar_week = ? AND deleted IS NULL`,
		week.Year, week.Week)
}

// shiftplan loads the matching bookings and their slots, then sums the
// slot lengths per sales person and day.
func (ts *txStore) shiftplan(ctx context.Context, query string, args ...any) ([]accounting.ShiftplanHoursEntry, error) {
	var rows []bookingRow
	if err := ts.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	bookings := make([]accounting.Booking, len(rows))
	seen := make(map[uuid.UUID]bool)
	var slotIDs []uuid.UUID
	for i, r := range rows {
		bookings[i] = r.toDomain()
		if !seen[r.SlotID] {
			seen[r.SlotID] = true
			slotIDs = append(slotIDs, r.SlotID)
		}
	}

	slotQuery, slotArgs, err := sqlx.In(`SELECT `+slotColumns+` FROM slot WHERE id IN (?)`, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build slot query: %w", err)
	}
	var slotRows []slotRow
	if err := ts.q.SelectContext(ctx, &slotRows, ts.q.Rebind(slotQuery), slotArgs...); err != nil {
		return nil, fmt.Errorf("failed to load slots: %w", err)
	}
	slots := make(map[uuid.UUID]accounting.Slot, len(slotRows))
	for _, r := range slotRows {
		slot, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		slots[slot.ID] = slot
	}
	return accounting.AggregateBookings(bookings, slots), nil
}

// =============================================================================
// CARRYOVER
// =============================================================================

const carryoverColumns = `sales_person_id, year, carryover_hours, vacation, created, deleted, version`

func (ts *txStore) FindCarryover(ctx context.Context, salesPersonID uuid.UUID, year int) (*accounting.Carryover, error) {
	var row carryoverRow
	found, err := ts.get(ctx, &row, `
		SELECT `+carryoverColumns+` FROM carryover
		WHERE sales_person_id = ? AND year = ? AND deleted IS NULL`,
		salesPersonID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load carryover %s/%d: %w", salesPersonID, year, err)
	}
	if !found {
		return nil, nil
	}
	c := row.toDomain()
	return &c, nil
}

func (ts *txStore) SaveCarryover(ctx context.Context, c accounting.Carryover) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO carryover (`+carryoverColumns+`)
		VALUES (:sales_person_id, :year, :carryover_hours, :vacation, :created, :deleted, :version)
		ON CONFLICT(sales_person_id, year) DO UPDATE SET
			carryover_hours = excluded.carryover_hours,
			vacation = excluded.vacation,
			created = excluded.created,
			deleted = excluded.deleted,
			version = excluded.version`,
		toCarryoverRow(c))
	if err != nil {
		return fmt.Errorf("failed to save carryover %s/%d: %w", c.SalesPersonID, c.Year, err)
	}
	return nil
}
