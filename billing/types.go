/*
types.go - Billing period model

A billing period is an immutable payroll snapshot of [StartDate, EndDate].
For every sales person it stores one Value per tracked ValueType:

  Delta     figure of exactly [StartDate, EndDate]
  YTDFrom   year-to-date ending the day before StartDate
  YTDTo     year-to-date ending EndDate
  FullYear  the whole calendar year containing EndDate

Only the soft-delete columns of a stored period ever change.
*/
package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
)

// =============================================================================
// VALUE TYPES
// =============================================================================

// ValueType names a tracked figure. Custom extra-hours categories are
// stored as "custom_extra_hours:<name>".
type ValueType string

const (
	ValueBalance             ValueType = "balance"
	ValueOverall             ValueType = "overall"
	ValueExpectedHours       ValueType = "expected_hours"
	ValueExtraWork           ValueType = "extra_work"
	ValueVacationHours       ValueType = "vacation_hours"
	ValueSickLeave           ValueType = "sick_leave"
	ValueHoliday             ValueType = "holiday"
	ValueVacationDays        ValueType = "vacation_days"
	ValueVacationEntitlement ValueType = "vacation_entitlement"

	customValuePrefix = "custom_extra_hours:"
)

func CustomValueType(name string) ValueType { return ValueType(customValuePrefix + name) }

// ParseValueType accepts the storage form of a value type.
func ParseValueType(s string) (ValueType, error) {
	switch v := ValueType(s); v {
	case ValueBalance, ValueOverall, ValueExpectedHours, ValueExtraWork, ValueVacationHours,
		ValueSickLeave, ValueHoliday, ValueVacationDays, ValueVacationEntitlement:
		return v, nil
	}
	if name, ok := strings.CutPrefix(s, customValuePrefix); ok && name != "" {
		return CustomValueType(name), nil
	}
	return "", &accounting.InputError{Field: "value_type", Reason: "unknown value type " + s}
}

// CustomName returns the category name of a custom value type.
func (v ValueType) CustomName() (string, bool) {
	return strings.CutPrefix(string(v), customValuePrefix)
}

// =============================================================================
// BILLING PERIOD
// =============================================================================

type Value struct {
	Delta    decimal.Decimal `json:"value_delta"`
	YTDFrom  decimal.Decimal `json:"value_ytd_from"`
	YTDTo    decimal.Decimal `json:"value_ytd_to"`
	FullYear decimal.Decimal `json:"value_full_year"`
}

type BillingPeriodSalesPerson struct {
	ID              uuid.UUID           `json:"id"`
	BillingPeriodID uuid.UUID           `json:"billing_period_id"`
	SalesPersonID   uuid.UUID           `json:"sales_person_id"`
	Values          map[ValueType]Value `json:"values"`
	CreatedAt       time.Time           `json:"created_at"`
	CreatedBy       string              `json:"created_by"`
	Deleted         *time.Time          `json:"deleted_at,omitempty"`
	DeletedBy       *string             `json:"deleted_by,omitempty"`
}

// ValueTypes returns the tracked types in a stable order.
func (p BillingPeriodSalesPerson) ValueTypes() []ValueType {
	types := make([]ValueType, 0, len(p.Values))
	for t := range p.Values {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

type BillingPeriod struct {
	ID           uuid.UUID                  `json:"id"`
	StartDate    calendar.Date              `json:"start_date"`
	EndDate      calendar.Date              `json:"end_date"`
	SalesPersons []BillingPeriodSalesPerson `json:"sales_persons"`
	CreatedAt    time.Time                  `json:"created_at"`
	CreatedBy    string                     `json:"created_by"`
	Deleted      *time.Time                 `json:"deleted_at,omitempty"`
	DeletedBy    *string                    `json:"deleted_by,omitempty"`
}

// SalesPerson returns the snapshot of one sales person, if present.
func (bp *BillingPeriod) SalesPerson(id uuid.UUID) (BillingPeriodSalesPerson, bool) {
	for _, sp := range bp.SalesPersons {
		if sp.SalesPersonID == id {
			return sp, true
		}
	}
	return BillingPeriodSalesPerson{}, false
}

// =============================================================================
// TEXT TEMPLATE
// =============================================================================

// TextTemplate is a stored text/template body used to render a billing
// period for payroll mails and exports.
type TextTemplate struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	TemplateType string     `json:"template_type"`
	Body         string     `json:"template_text"`
	CreatedAt    time.Time  `json:"created_at"`
	CreatedBy    string     `json:"created_by"`
	Deleted      *time.Time `json:"deleted,omitempty"`
	Version      uuid.UUID  `json:"version"`
}
