/*
classify.go - Extra-hours categories and their accounting effect

Every category carries two independent classifications:

  Availability: Available (ExtraWork) vs Unavailable (Vacation, SickLeave,
                Holiday, Unavailable). Used by the single-week snapshot.
  ReportType:   WorkingHours (adds to worked hours) vs AbsenceHours
                (subtracts from the expectation). Used by employee reports.

Custom categories count as working hours when they modify the balance and
have no accounting effect otherwise.

ZERO EXPECTATION:
  When a week's weighted contract hours are zero or negative, working hours
  are added to the expectation as well (the week contributes nothing to the
  balance) and absence hours are dropped, since there is nothing to offset
  them against.
*/
package accounting

import (
	"strings"

	"github.com/shopspring/decimal"
)

type CategoryKind string

const (
	KindExtraWork   CategoryKind = "extra_work"
	KindVacation    CategoryKind = "vacation"
	KindSickLeave   CategoryKind = "sick_leave"
	KindHoliday     CategoryKind = "holiday"
	KindUnavailable CategoryKind = "unavailable"
	KindCustom      CategoryKind = "custom"
)

type ExtraHoursCategory struct {
	Kind   CategoryKind                `json:"kind"`
	Custom *CustomExtraHoursDefinition `json:"custom,omitempty"`
}

var (
	ExtraWork   = ExtraHoursCategory{Kind: KindExtraWork}
	Vacation    = ExtraHoursCategory{Kind: KindVacation}
	SickLeave   = ExtraHoursCategory{Kind: KindSickLeave}
	Holiday     = ExtraHoursCategory{Kind: KindHoliday}
	Unavailable = ExtraHoursCategory{Kind: KindUnavailable}
)

func CustomCategory(def CustomExtraHoursDefinition) ExtraHoursCategory {
	return ExtraHoursCategory{Kind: KindCustom, Custom: &def}
}

// ParseCategoryKind accepts the storage form of a category kind.
func ParseCategoryKind(s string) (CategoryKind, error) {
	switch k := CategoryKind(s); k {
	case KindExtraWork, KindVacation, KindSickLeave, KindHoliday, KindUnavailable, KindCustom:
		return k, nil
	}
	return "", &InputError{Field: "category", Reason: "unknown category " + s}
}

type Availability int

const (
	AvailabilityNone Availability = iota
	Available
	NotAvailable
)

type ReportType int

const (
	ReportTypeNone ReportType = iota
	WorkingHours
	AbsenceHours
)

func (c ExtraHoursCategory) Availability() Availability {
	switch c.Kind {
	case KindExtraWork:
		return Available
	case KindVacation, KindSickLeave, KindHoliday, KindUnavailable:
		return NotAvailable
	case KindCustom:
		if c.modifiesBalance() {
			return Available
		}
	}
	return AvailabilityNone
}

func (c ExtraHoursCategory) ReportType() ReportType {
	switch c.Kind {
	case KindExtraWork:
		return WorkingHours
	case KindVacation, KindSickLeave, KindHoliday:
		return AbsenceHours
	case KindCustom:
		if c.modifiesBalance() {
			return WorkingHours
		}
	}
	return ReportTypeNone
}

func (c ExtraHoursCategory) modifiesBalance() bool {
	return c.Custom != nil && c.Custom.ModifiesBalance
}

// ReportCategory labels a day row of a weekly breakdown.
type ReportCategory string

const (
	CategoryShiftplan   ReportCategory = "shiftplan"
	CategoryExtraWork   ReportCategory = "extra_work"
	CategoryVacation    ReportCategory = "vacation"
	CategorySickLeave   ReportCategory = "sick_leave"
	CategoryHoliday     ReportCategory = "holiday"
	CategoryUnavailable ReportCategory = "unavailable"

	customCategoryPrefix = "custom:"
)

func (c ExtraHoursCategory) ReportCategory() ReportCategory {
	if c.Kind == KindCustom {
		name := ""
		if c.Custom != nil {
			name = c.Custom.Name
		}
		return ReportCategory(customCategoryPrefix + name)
	}
	return ReportCategory(c.Kind)
}

// CustomName returns the custom category name, if any.
func (rc ReportCategory) CustomName() (string, bool) {
	return strings.CutPrefix(string(rc), customCategoryPrefix)
}

// =============================================================================
// WEEK CLASSIFICATION
// =============================================================================

type WeekClassification struct {
	WorkingHours    decimal.Decimal
	AbsenceHours    decimal.Decimal
	ZeroExpectation bool
}

// ClassifyWeek sums a week's entries by report type.
func ClassifyWeek(expected decimal.Decimal, entries []ExtraHours) WeekClassification {
	c := WeekClassification{ZeroExpectation: !expected.IsPositive()}
	for _, e := range entries {
		switch e.Category.ReportType() {
		case WorkingHours:
			c.WorkingHours = c.WorkingHours.Add(e.Amount)
		case AbsenceHours:
			if !c.ZeroExpectation {
				c.AbsenceHours = c.AbsenceHours.Add(e.Amount)
			}
		}
	}
	return c
}

// ClassifyWeekByAvailability sums a week's entries by availability.
func ClassifyWeekByAvailability(expected decimal.Decimal, entries []ExtraHours) WeekClassification {
	c := WeekClassification{ZeroExpectation: !expected.IsPositive()}
	for _, e := range entries {
		switch e.Category.Availability() {
		case Available:
			c.WorkingHours = c.WorkingHours.Add(e.Amount)
		case NotAvailable:
			if !c.ZeroExpectation {
				c.AbsenceHours = c.AbsenceHours.Add(e.Amount)
			}
		}
	}
	return c
}

// Expectation is the gross hours a week is measured against: the contract
// hours, or the worked hours themselves in a zero-expectation week.
func (c WeekClassification) Expectation(contract, shiftplan decimal.Decimal) decimal.Decimal {
	if c.ZeroExpectation {
		return shiftplan.Add(c.WorkingHours)
	}
	return contract
}
