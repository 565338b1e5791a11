package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
	"github.com/warp/workhours-engine/calendar"
)

// Row types mirror the tables column for column; conversion to and from
// domain types happens here and nowhere else.

type salesPersonRow struct {
	ID         uuid.UUID  `db:"id"`
	Name       string     `db:"name"`
	Background string     `db:"background"`
	IsPaid     bool       `db:"is_paid"`
	Inactive   bool       `db:"inactive"`
	Deleted    *time.Time `db:"deleted"`
	Version    uuid.UUID  `db:"version"`
}

func toSalesPersonRow(sp accounting.SalesPerson) salesPersonRow {
	return salesPersonRow{
		ID:         sp.ID,
		Name:       sp.Name,
		Background: sp.Background,
		IsPaid:     sp.Paid(),
		Inactive:   sp.Inactive,
		Deleted:    sp.Deleted,
		Version:    sp.Version,
	}
}

func (r salesPersonRow) toDomain() accounting.SalesPerson {
	paid := r.IsPaid
	return accounting.SalesPerson{
		ID:         r.ID,
		Name:       r.Name,
		Background: r.Background,
		IsPaid:     &paid,
		Inactive:   r.Inactive,
		Deleted:    r.Deleted,
		Version:    r.Version,
	}
}

type workDetailsRow struct {
	ID               uuid.UUID       `db:"id"`
	SalesPersonID    uuid.UUID       `db:"sales_person_id"`
	ExpectedHours    decimal.Decimal `db:"expected_hours"`
	FromDayOfWeek    int             `db:"from_day_of_week"`
	FromCalendarWeek int             `db:"from_calendar_week"`
	FromYear         int             `db:"from_year"`
	ToDayOfWeek      int             `db:"to_day_of_week"`
	ToCalendarWeek   int             `db:"to_calendar_week"`
	ToYear           int             `db:"to_year"`
	WorkdaysPerWeek  int             `db:"workdays_per_week"`
	Monday           bool            `db:"monday"`
	Tuesday          bool            `db:"tuesday"`
	Wednesday        bool            `db:"wednesday"`
	Thursday         bool            `db:"thursday"`
	Friday           bool            `db:"friday"`
	Saturday         bool            `db:"saturday"`
	Sunday           bool            `db:"sunday"`
	VacationDays     int             `db:"vacation_days"`
	Created          time.Time       `db:"created"`
	Deleted          *time.Time      `db:"deleted"`
	Version          uuid.UUID       `db:"version"`
}

func toWorkDetailsRow(wd accounting.WorkDetails) workDetailsRow {
	w := wd.Workdays
	return workDetailsRow{
		ID:               wd.ID,
		SalesPersonID:    wd.SalesPersonID,
		ExpectedHours:    wd.ExpectedHours,
		FromDayOfWeek:    wd.FromDayOfWeek.Number(),
		FromCalendarWeek: wd.FromWeek,
		FromYear:         wd.FromYear,
		ToDayOfWeek:      wd.ToDayOfWeek.Number(),
		ToCalendarWeek:   wd.ToWeek,
		ToYear:           wd.ToYear,
		WorkdaysPerWeek:  wd.WorkdaysPerWeek,
		Monday:           w.Has(calendar.Monday),
		Tuesday:          w.Has(calendar.Tuesday),
		Wednesday:        w.Has(calendar.Wednesday),
		Thursday:         w.Has(calendar.Thursday),
		Friday:           w.Has(calendar.Friday),
		Saturday:         w.Has(calendar.Saturday),
		Sunday:           w.Has(calendar.Sunday),
		VacationDays:     wd.VacationDays,
		Created:          wd.Created.UTC(),
		Deleted:          wd.Deleted,
		Version:          wd.Version,
	}
}

func (r workDetailsRow) toDomain() (accounting.WorkDetails, error) {
	from, err := calendar.DayOfWeekFromNumber(r.FromDayOfWeek)
	if err != nil {
		return accounting.WorkDetails{}, fmt.Errorf("work details %s: %w", r.ID, err)
	}
	to, err := calendar.DayOfWeekFromNumber(r.ToDayOfWeek)
	if err != nil {
		return accounting.WorkDetails{}, fmt.Errorf("work details %s: %w", r.ID, err)
	}

	var days []calendar.DayOfWeek
	for d, set := range []bool{r.Monday, r.Tuesday, r.Wednesday, r.Thursday, r.Friday, r.Saturday, r.Sunday} {
		if set {
			days = append(days, calendar.DayOfWeek(d))
		}
	}
	return accounting.WorkDetails{
		ID:              r.ID,
		SalesPersonID:   r.SalesPersonID,
		ExpectedHours:   r.ExpectedHours,
		FromDayOfWeek:   from,
		FromWeek:        r.FromCalendarWeek,
		FromYear:        r.FromYear,
		ToDayOfWeek:     to,
		ToWeek:          r.ToCalendarWeek,
		ToYear:          r.ToYear,
		WorkdaysPerWeek: r.WorkdaysPerWeek,
		Workdays:        accounting.NewWeekdays(days...),
		VacationDays:    r.VacationDays,
		Created:         r.Created,
		Deleted:         r.Deleted,
		Version:         r.Version,
	}, nil
}

type customExtraHoursRow struct {
	ID                     uuid.UUID  `db:"id"`
	Name                   string     `db:"name"`
	Description            string     `db:"description"`
	ModifiesBalance        bool       `db:"modifies_balance"`
	AssignedSalesPersonIDs string     `db:"assigned_sales_person_ids"`
	Created                time.Time  `db:"created"`
	Deleted                *time.Time `db:"deleted"`
	Version                uuid.UUID  `db:"version"`
}

func toCustomExtraHoursRow(def accounting.CustomExtraHoursDefinition) (customExtraHoursRow, error) {
	ids := def.AssignedSalesPersonIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	assigned, err := json.Marshal(ids)
	if err != nil {
		return customExtraHoursRow{}, err
	}
	return customExtraHoursRow{
		ID:                     def.ID,
		Name:                   def.Name,
		Description:            def.Description,
		ModifiesBalance:        def.ModifiesBalance,
		AssignedSalesPersonIDs: string(assigned),
		Created:                def.Created.UTC(),
		Deleted:                def.Deleted,
		Version:                def.Version,
	}, nil
}

func (r customExtraHoursRow) toDomain() (accounting.CustomExtraHoursDefinition, error) {
	var assigned []uuid.UUID
	if err := json.Unmarshal([]byte(r.AssignedSalesPersonIDs), &assigned); err != nil {
		return accounting.CustomExtraHoursDefinition{}, fmt.Errorf("custom extra hours %s: %w", r.ID, err)
	}
	return accounting.CustomExtraHoursDefinition{
		ID:                     r.ID,
		Name:                   r.Name,
		Description:            r.Description,
		ModifiesBalance:        r.ModifiesBalance,
		AssignedSalesPersonIDs: assigned,
		Created:                r.Created,
		Deleted:                r.Deleted,
		Version:                r.Version,
	}, nil
}

// extraHoursRow carries the joined custom category columns (prefixed
// custom_) when custom_extra_hours_id is set.
type extraHoursRow struct {
	ID                 uuid.UUID       `db:"id"`
	SalesPersonID      uuid.UUID       `db:"sales_person_id"`
	Amount             decimal.Decimal `db:"amount"`
	Category           string          `db:"category"`
	CustomExtraHoursID uuid.NullUUID   `db:"custom_extra_hours_id"`
	Description        string          `db:"description"`
	DateTime           time.Time       `db:"date_time"`
	Day                calendar.Date   `db:"day"`
	Created            time.Time       `db:"created"`
	Deleted            *time.Time      `db:"deleted"`
	Version            uuid.UUID       `db:"version"`

	CustomName            sql.NullString `db:"custom_name"`
	CustomDescription     sql.NullString `db:"custom_description"`
	CustomModifiesBalance sql.NullBool   `db:"custom_modifies_balance"`
	CustomAssigned        sql.NullString `db:"custom_assigned_sales_person_ids"`
}

func toExtraHoursRow(eh accounting.ExtraHours) extraHoursRow {
	r := extraHoursRow{
		ID:            eh.ID,
		SalesPersonID: eh.SalesPersonID,
		Amount:        eh.Amount,
		Category:      string(eh.Category.Kind),
		Description:   eh.Description,
		DateTime:      eh.DateTime.UTC(),
		Day:           eh.Date(),
		Created:       eh.Created.UTC(),
		Deleted:       eh.Deleted,
		Version:       eh.Version,
	}
	if eh.Category.Kind == accounting.KindCustom && eh.Category.Custom != nil {
		r.CustomExtraHoursID = uuid.NullUUID{UUID: eh.Category.Custom.ID, Valid: true}
	}
	return r
}

func (r extraHoursRow) toDomain() (accounting.ExtraHours, error) {
	kind, err := accounting.ParseCategoryKind(r.Category)
	if err != nil {
		return accounting.ExtraHours{}, fmt.Errorf("extra hours %s: %w", r.ID, err)
	}
	category := accounting.ExtraHoursCategory{Kind: kind}
	if kind == accounting.KindCustom && r.CustomExtraHoursID.Valid {
		def := accounting.CustomExtraHoursDefinition{
			ID:              r.CustomExtraHoursID.UUID,
			Name:            r.CustomName.String,
			Description:     r.CustomDescription.String,
			ModifiesBalance: r.CustomModifiesBalance.Bool,
		}
		if r.CustomAssigned.Valid {
			if err := json.Unmarshal([]byte(r.CustomAssigned.String), &def.AssignedSalesPersonIDs); err != nil {
				return accounting.ExtraHours{}, fmt.Errorf("extra hours %s: %w", r.ID, err)
			}
		}
		category = accounting.CustomCategory(def)
	}
	return accounting.ExtraHours{
		ID:            r.ID,
		SalesPersonID: r.SalesPersonID,
		Amount:        r.Amount,
		Category:      category,
		Description:   r.Description,
		DateTime:      r.DateTime,
		Created:       r.Created,
		Deleted:       r.Deleted,
		Version:       r.Version,
	}, nil
}

type slotRow struct {
	ID          uuid.UUID      `db:"id"`
	DayOfWeek   int            `db:"day_of_week"`
	FromMinutes int            `db:"from_minutes"`
	ToMinutes   int            `db:"to_minutes"`
	ValidFrom   calendar.Date  `db:"valid_from"`
	ValidTo     *calendar.Date `db:"valid_to"`
	Deleted     *time.Time     `db:"deleted"`
	Version     uuid.UUID      `db:"version"`
}

func toSlotRow(s accounting.Slot) slotRow {
	return slotRow{
		ID:          s.ID,
		DayOfWeek:   s.DayOfWeek.Number(),
		FromMinutes: int(s.From / time.Minute),
		ToMinutes:   int(s.To / time.Minute),
		ValidFrom:   s.ValidFrom,
		ValidTo:     s.ValidTo,
		Deleted:     s.Deleted,
		Version:     s.Version,
	}
}

func (r slotRow) toDomain() (accounting.Slot, error) {
	day, err := calendar.DayOfWeekFromNumber(r.DayOfWeek)
	if err != nil {
		return accounting.Slot{}, fmt.Errorf("slot %s: %w", r.ID, err)
	}
	return accounting.Slot{
		ID:        r.ID,
		DayOfWeek: day,
		From:      time.Duration(r.FromMinutes) * time.Minute,
		To:        time.Duration(r.ToMinutes) * time.Minute,
		ValidFrom: r.ValidFrom,
		ValidTo:   r.ValidTo,
		Deleted:   r.Deleted,
		Version:   r.Version,
	}, nil
}

type bookingRow struct {
	ID            uuid.UUID  `db:"id"`
	SalesPersonID uuid.UUID  `db:"sales_person_id"`
	SlotID        uuid.UUID  `db:"slot_id"`
	CalendarWeek  int        `db:"calendar_week"`
	Year          int        `db:"year"`
	Created       time.Time  `db:"created"`
	Deleted       *time.Time `db:"deleted"`
	Version       uuid.UUID  `db:"version"`
}

func (r bookingRow) toDomain() accounting.Booking {
	return accounting.Booking(r)
}

type billingPeriodRow struct {
	ID        uuid.UUID     `db:"id"`
	StartDate calendar.Date `db:"start_date"`
	EndDate   calendar.Date `db:"end_date"`
	CreatedAt time.Time     `db:"created_at"`
	CreatedBy string        `db:"created_by"`
	Deleted   *time.Time    `db:"deleted"`
	DeletedBy *string       `db:"deleted_by"`
}

func (r billingPeriodRow) toDomain() billing.BillingPeriod {
	return billing.BillingPeriod{
		ID:        r.ID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CreatedAt: r.CreatedAt,
		CreatedBy: r.CreatedBy,
		Deleted:   r.Deleted,
		DeletedBy: r.DeletedBy,
	}
}

type billingPeriodSalesPersonRow struct {
	ID              uuid.UUID  `db:"id"`
	BillingPeriodID uuid.UUID  `db:"billing_period_id"`
	SalesPersonID   uuid.UUID  `db:"sales_person_id"`
	CreatedAt       time.Time  `db:"created_at"`
	CreatedBy       string     `db:"created_by"`
	Deleted         *time.Time `db:"deleted"`
	DeletedBy       *string    `db:"deleted_by"`
}

type billingPeriodValueRow struct {
	SalesPersonRowID uuid.UUID       `db:"billing_period_sales_person_id"`
	ValueType        string          `db:"value_type"`
	Delta            decimal.Decimal `db:"value_delta"`
	YTDFrom          decimal.Decimal `db:"value_ytd_from"`
	YTDTo            decimal.Decimal `db:"value_ytd_to"`
	FullYear         decimal.Decimal `db:"value_full_year"`
}

type textTemplateRow struct {
	ID           uuid.UUID  `db:"id"`
	Name         string     `db:"name"`
	TemplateType string     `db:"template_type"`
	TemplateText string     `db:"template_text"`
	CreatedAt    time.Time  `db:"created_at"`
	CreatedBy    string     `db:"created_by"`
	Deleted      *time.Time `db:"deleted"`
	Version      uuid.UUID  `db:"version"`
}

func (r textTemplateRow) toDomain() billing.TextTemplate {
	return billing.TextTemplate{
		ID:           r.ID,
		Name:         r.Name,
		TemplateType: r.TemplateType,
		Body:         r.TemplateText,
		CreatedAt:    r.CreatedAt,
		CreatedBy:    r.CreatedBy,
		Deleted:      r.Deleted,
		Version:      r.Version,
	}
}

type carryoverRow struct {
	SalesPersonID  uuid.UUID       `db:"sales_person_id"`
	Year           int             `db:"year"`
	CarryoverHours decimal.Decimal `db:"carryover_hours"`
	Vacation       int             `db:"vacation"`
	Created        time.Time       `db:"created"`
	Deleted        *time.Time      `db:"deleted"`
	Version        uuid.UUID       `db:"version"`
}

func toCarryoverRow(c accounting.Carryover) carryoverRow {
	return carryoverRow{
		SalesPersonID:  c.SalesPersonID,
		Year:           c.Year,
		CarryoverHours: c.CarryoverHours,
		Vacation:       c.Vacation,
		Created:        c.Created.UTC(),
		Deleted:        c.Deleted,
		Version:        c.Version,
	}
}

func (r carryoverRow) toDomain() accounting.Carryover {
	return accounting.Carryover{
		SalesPersonID:  r.SalesPersonID,
		Year:           r.Year,
		CarryoverHours: r.CarryoverHours,
		Vacation:       r.Vacation,
		Created:        r.Created,
		Deleted:        r.Deleted,
		Version:        r.Version,
	}
}
