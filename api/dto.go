/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON request bodies and the few response wrappers of the
  REST surface. Reports, billing periods and entities are returned as the
  engine types themselves; their json tags are the API contract.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Request types carry go-playground/validator tags and are checked by
  decodeAndValidate before a transaction is opened. Rules the tags cannot
  express (decimal ranges, week numbers of a given year) are checked in
  the toXxx conversion helpers and surface as accounting.InputError.

DECIMALS:
  Hour figures are encoded as JSON numbers (decimal.MarshalJSONWithoutQuotes).

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// =============================================================================
// SALES PERSONS & CONTRACTS
// =============================================================================

type CreateSalesPersonRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Background string `json:"background" validate:"omitempty,hexcolor"`
	IsPaid     bool   `json:"is_paid"`
	Inactive   bool   `json:"inactive"`
}

func (r CreateSalesPersonRequest) toSalesPerson() accounting.SalesPerson {
	paid := r.IsPaid
	return accounting.SalesPerson{
		ID:         uuid.New(),
		Name:       r.Name,
		Background: r.Background,
		IsPaid:     &paid,
		Inactive:   r.Inactive,
		Version:    uuid.New(),
	}
}

// CreateWorkDetailsRequest describes one contract. Day numbers are
// 1=Monday .. 7=Sunday.
type CreateWorkDetailsRequest struct {
	ExpectedHours   decimal.Decimal `json:"expected_hours"`
	FromYear        int             `json:"from_year" validate:"required,min=1970,max=9999"`
	FromWeek        int             `json:"from_calendar_week" validate:"required,min=1,max=53"`
	FromDayOfWeek   int             `json:"from_day_of_week" validate:"required,min=1,max=7"`
	ToYear          int             `json:"to_year" validate:"required,min=1970,max=9999,gtefield=FromYear"`
	ToWeek          int             `json:"to_calendar_week" validate:"required,min=1,max=53"`
	ToDayOfWeek     int             `json:"to_day_of_week" validate:"required,min=1,max=7"`
	WorkdaysPerWeek int             `json:"workdays_per_week" validate:"min=0,max=7"`
	Workdays        []int           `json:"workdays" validate:"required,min=1,max=7,unique,dive,min=1,max=7"`
	VacationDays    int             `json:"vacation_days" validate:"min=0,max=366"`
}

func (r CreateWorkDetailsRequest) toWorkDetails(salesPersonID uuid.UUID, now time.Time) (accounting.WorkDetails, error) {
	if r.ExpectedHours.IsNegative() {
		return accounting.WorkDetails{}, &accounting.InputError{Field: "expected_hours", Reason: "must not be negative"}
	}
	if r.FromWeek > calendar.WeeksInYear(r.FromYear) {
		return accounting.WorkDetails{}, &accounting.InputError{Field: "from_calendar_week", Reason: "year has no week " + strconv.Itoa(r.FromWeek)}
	}
	if r.ToWeek > calendar.WeeksInYear(r.ToYear) {
		return accounting.WorkDetails{}, &accounting.InputError{Field: "to_calendar_week", Reason: "year has no week " + strconv.Itoa(r.ToWeek)}
	}

	// Number ranges are enforced by the validate tags.
	fromDay, _ := calendar.DayOfWeekFromNumber(r.FromDayOfWeek)
	toDay, _ := calendar.DayOfWeekFromNumber(r.ToDayOfWeek)
	var days []calendar.DayOfWeek
	for _, n := range r.Workdays {
		d, _ := calendar.DayOfWeekFromNumber(n)
		days = append(days, d)
	}

	wd := accounting.WorkDetails{
		ID:              uuid.New(),
		SalesPersonID:   salesPersonID,
		ExpectedHours:   r.ExpectedHours,
		FromDayOfWeek:   fromDay,
		FromWeek:        r.FromWeek,
		FromYear:        r.FromYear,
		ToDayOfWeek:     toDay,
		ToWeek:          r.ToWeek,
		ToYear:          r.ToYear,
		WorkdaysPerWeek: r.WorkdaysPerWeek,
		Workdays:        accounting.NewWeekdays(days...),
		VacationDays:    r.VacationDays,
		Created:         now,
		Version:         uuid.New(),
	}
	if wd.WorkdaysPerWeek == 0 {
		wd.WorkdaysPerWeek = len(days)
	}
	if wd.LastWeek().Before(wd.FirstWeek()) {
		return accounting.WorkDetails{}, &accounting.InputError{Field: "to_calendar_week", Reason: "contract ends before it starts"}
	}
	return wd, nil
}

// =============================================================================
// EXTRA HOURS
// =============================================================================

type CreateExtraHoursRequest struct {
	SalesPersonID      uuid.UUID       `json:"sales_person_id" validate:"required"`
	Amount             decimal.Decimal `json:"amount"`
	Category           string          `json:"category" validate:"required,oneof=extra_work vacation sick_leave holiday unavailable custom"`
	CustomExtraHoursID *uuid.UUID      `json:"custom_extra_hours_id" validate:"required_if=Category custom"`
	Description        string          `json:"description" validate:"max=500"`
	DateTime           time.Time       `json:"date_time" validate:"required"`
}

type CreateCustomExtraHoursRequest struct {
	Name                   string      `json:"name" validate:"required,max=100"`
	Description            string      `json:"description" validate:"max=500"`
	ModifiesBalance        bool        `json:"modifies_balance"`
	AssignedSalesPersonIDs []uuid.UUID `json:"assigned_sales_person_ids"`
}

func (r CreateCustomExtraHoursRequest) toDefinition(now time.Time) accounting.CustomExtraHoursDefinition {
	return accounting.CustomExtraHoursDefinition{
		ID:                     uuid.New(),
		Name:                   r.Name,
		Description:            r.Description,
		ModifiesBalance:        r.ModifiesBalance,
		AssignedSalesPersonIDs: r.AssignedSalesPersonIDs,
		Created:                now,
		Version:                uuid.New(),
	}
}

// =============================================================================
// SHIFT PLAN
// =============================================================================

// CreateSlotRequest times are "15:04" offsets from midnight.
type CreateSlotRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	From      string `json:"from" validate:"required,datetime=15:04"`
	To        string `json:"to" validate:"required,datetime=15:04"`
	ValidFrom string `json:"valid_from" validate:"required,datetime=2006-01-02"`
	ValidTo   string `json:"valid_to" validate:"omitempty,datetime=2006-01-02"`
}

func (r CreateSlotRequest) toSlot() (accounting.Slot, error) {
	day, _ := calendar.DayOfWeekFromNumber(r.DayOfWeek)
	from, err := clockOffset(r.From)
	if err != nil {
		return accounting.Slot{}, &accounting.InputError{Field: "from", Reason: err.Error()}
	}
	to, err := clockOffset(r.To)
	if err != nil {
		return accounting.Slot{}, &accounting.InputError{Field: "to", Reason: err.Error()}
	}
	if to <= from {
		return accounting.Slot{}, &accounting.InputError{Field: "to", Reason: "must be after from"}
	}
	validFrom, err := calendar.ParseDate(r.ValidFrom)
	if err != nil {
		return accounting.Slot{}, &accounting.InputError{Field: "valid_from", Reason: err.Error()}
	}

	slot := accounting.Slot{
		ID:        uuid.New(),
		DayOfWeek: day,
		From:      from,
		To:        to,
		ValidFrom: validFrom,
		Version:   uuid.New(),
	}
	if r.ValidTo != "" {
		validTo, err := calendar.ParseDate(r.ValidTo)
		if err != nil {
			return accounting.Slot{}, &accounting.InputError{Field: "valid_to", Reason: err.Error()}
		}
		if validTo.Before(validFrom) {
			return accounting.Slot{}, &accounting.InputError{Field: "valid_to", Reason: "must not be before valid_from"}
		}
		slot.ValidTo = &validTo
	}
	return slot, nil
}

func clockOffset(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

type CreateBookingRequest struct {
	SalesPersonID uuid.UUID `json:"sales_person_id" validate:"required"`
	SlotID        uuid.UUID `json:"slot_id" validate:"required"`
	CalendarWeek  int       `json:"calendar_week" validate:"required,min=1,max=53"`
	Year          int       `json:"year" validate:"required,min=1970,max=9999"`
}

// =============================================================================
// CARRYOVER
// =============================================================================

// SetCarryoverRequest replaces the carryover of (sales person, year).
type SetCarryoverRequest struct {
	SalesPersonID  uuid.UUID       `json:"sales_person_id" validate:"required"`
	Year           int             `json:"year" validate:"required,min=1970,max=9999"`
	CarryoverHours decimal.Decimal `json:"carryover_hours"`
	Vacation       int             `json:"vacation" validate:"min=-366,max=366"`
}

func (r SetCarryoverRequest) toCarryover() accounting.Carryover {
	return accounting.Carryover{
		SalesPersonID:  r.SalesPersonID,
		Year:           r.Year,
		CarryoverHours: r.CarryoverHours,
		Vacation:       r.Vacation,
	}
}

// =============================================================================
// BILLING
// =============================================================================

type CreateBillingPeriodRequest struct {
	EndDate string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type CreateTextTemplateRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	TemplateType string `json:"template_type" validate:"max=50"`
	Body         string `json:"template_text" validate:"required"`
}

// CustomReportResponse wraps the rendered text.
type CustomReportResponse struct {
	BillingPeriodID uuid.UUID `json:"billing_period_id"`
	TemplateID      uuid.UUID `json:"template_id"`
	Text            string    `json:"text"`
}

// =============================================================================
// AUTH
// =============================================================================

// TokenRequest is accepted by the development token endpoint.
type TokenRequest struct {
	UserID        string     `json:"user_id" validate:"required,max=100"`
	SalesPersonID *uuid.UUID `json:"sales_person_id"`
	Privileges    []string   `json:"privileges" validate:"dive,oneof=hr sales shiftplanner"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type LoadScenarioResponse struct {
	Scenario       string      `json:"scenario"`
	SalesPersonIDs []uuid.UUID `json:"sales_person_ids"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
