package accounting_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
)

func extra(amount string, cat accounting.ExtraHoursCategory, at time.Time) accounting.ExtraHours {
	return accounting.ExtraHours{
		ID:       uuid.New(),
		Amount:   hours(amount),
		Category: cat,
		DateTime: at,
	}
}

func TestExtraHoursCategory_Classification(t *testing.T) {
	counting := accounting.CustomCategory(accounting.CustomExtraHoursDefinition{ID: uuid.New(), Name: "training", ModifiesBalance: true})
	informational := accounting.CustomCategory(accounting.CustomExtraHoursDefinition{ID: uuid.New(), Name: "on call"})

	for _, tc := range []struct {
		name         string
		category     accounting.ExtraHoursCategory
		availability accounting.Availability
		reportType   accounting.ReportType
	}{
		{"extra work", accounting.ExtraWork, accounting.Available, accounting.WorkingHours},
		{"vacation", accounting.Vacation, accounting.NotAvailable, accounting.AbsenceHours},
		{"sick leave", accounting.SickLeave, accounting.NotAvailable, accounting.AbsenceHours},
		{"holiday", accounting.Holiday, accounting.NotAvailable, accounting.AbsenceHours},
		{"unavailable", accounting.Unavailable, accounting.NotAvailable, accounting.ReportTypeNone},
		{"custom modifying balance", counting, accounting.Available, accounting.WorkingHours},
		{"custom informational", informational, accounting.AvailabilityNone, accounting.ReportTypeNone},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.availability, tc.category.Availability())
			assert.Equal(t, tc.reportType, tc.category.ReportType())
		})
	}
}

func TestExtraHoursCategory_ReportCategory(t *testing.T) {
	assert.Equal(t, accounting.CategoryVacation, accounting.Vacation.ReportCategory())

	custom := accounting.CustomCategory(accounting.CustomExtraHoursDefinition{Name: "training"})
	rc := custom.ReportCategory()
	assert.Equal(t, accounting.ReportCategory("custom:training"), rc)

	name, ok := rc.CustomName()
	assert.True(t, ok)
	assert.Equal(t, "training", name)

	_, ok = accounting.CategoryShiftplan.CustomName()
	assert.False(t, ok)
}

func TestParseCategoryKind(t *testing.T) {
	kind, err := accounting.ParseCategoryKind("sick_leave")
	require.NoError(t, err)
	assert.Equal(t, accounting.KindSickLeave, kind)

	_, err = accounting.ParseCategoryKind("overtime")
	assert.True(t, accounting.IsClientError(err))
}

func TestClassifyWeek_SumsByReportType(t *testing.T) {
	monday := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	entries := []accounting.ExtraHours{
		extra("2", accounting.ExtraWork, monday),
		extra("8", accounting.Vacation, monday),
		extra("8", accounting.SickLeave, monday),
		extra("4", accounting.Unavailable, monday),
	}

	c := accounting.ClassifyWeek(hours("40"), entries)
	assert.False(t, c.ZeroExpectation)
	assertHours(t, "2", c.WorkingHours)
	assertHours(t, "16", c.AbsenceHours)
	assertHours(t, "40", c.Expectation(hours("40"), hours("30")))
}

func TestClassifyWeek_ZeroExpectationDropsAbsence(t *testing.T) {
	// GIVEN: A week without contract hours
	// WHEN: It holds extra work and a vacation entry
	// THEN: Absence is dropped and the expectation equals the worked hours

	monday := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	entries := []accounting.ExtraHours{
		extra("3", accounting.ExtraWork, monday),
		extra("8", accounting.Vacation, monday),
	}

	c := accounting.ClassifyWeek(hours("0"), entries)
	assert.True(t, c.ZeroExpectation)
	assertHours(t, "3", c.WorkingHours)
	assert.True(t, c.AbsenceHours.IsZero())
	assertHours(t, "13", c.Expectation(hours("0"), hours("10")))
}

func TestClassifyWeekByAvailability_CountsUnavailable(t *testing.T) {
	monday := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	entries := []accounting.ExtraHours{
		extra("2", accounting.ExtraWork, monday),
		extra("4", accounting.Unavailable, monday),
	}

	c := accounting.ClassifyWeekByAvailability(hours("40"), entries)
	assertHours(t, "2", c.WorkingHours)
	assertHours(t, "4", c.AbsenceHours)
}
