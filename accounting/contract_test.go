package accounting_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func hours(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertHours(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !hours(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s hours, got %s", want, got), msgAndArgs...)
	}
}

func week(year, w int) calendar.Week { return calendar.Week{Year: year, Week: w} }

// fullTime is a 40h Mon-Fri contract from the Monday of `from` to the
// Sunday of `to`.
func fullTime(salesPersonID uuid.UUID, from, to calendar.Week) accounting.WorkDetails {
	return accounting.WorkDetails{
		ID:              uuid.New(),
		SalesPersonID:   salesPersonID,
		ExpectedHours:   decimal.NewFromInt(40),
		FromDayOfWeek:   calendar.Monday,
		FromWeek:        from.Week,
		FromYear:        from.Year,
		ToDayOfWeek:     calendar.Sunday,
		ToWeek:          to.Week,
		ToYear:          to.Year,
		WorkdaysPerWeek: 5,
		Workdays:        accounting.MondayToFriday,
		VacationDays:    30,
	}
}

// =============================================================================
// CONTRACT SELECTOR
// =============================================================================

func TestContractsForWeek_ReturnsEveryOverlappingContract(t *testing.T) {
	// GIVEN: Two overlapping contracts and one that ended earlier
	// WHEN: Selecting contracts for a week covered by both
	// THEN: Both are returned and their weights add up

	id := uuid.New()
	a := fullTime(id, week(2024, 1), week(2024, 52))
	b := fullTime(id, week(2024, 10), week(2024, 20))
	b.ExpectedHours = decimal.NewFromInt(10)
	old := fullTime(id, week(2023, 1), week(2023, 52))

	matching := accounting.ContractsForWeek([]accounting.WorkDetails{a, b, old}, week(2024, 15))
	require.Len(t, matching, 2)

	var total accounting.Weight
	for _, c := range matching {
		w, err := accounting.WeightForWeek(c, week(2024, 15), 2024)
		require.NoError(t, err)
		total = total.Add(w)
	}
	assertHours(t, "50", total.ExpectedHours)
	assert.Equal(t, 10, total.WorkableDays)
}

func TestContractsForWeek_ComparesYearBeforeWeek(t *testing.T) {
	c := fullTime(uuid.New(), week(2023, 40), week(2024, 5))

	assert.Len(t, accounting.ContractsForWeek([]accounting.WorkDetails{c}, week(2023, 52)), 1)
	assert.Len(t, accounting.ContractsForWeek([]accounting.WorkDetails{c}, week(2024, 3)), 1)
	assert.Empty(t, accounting.ContractsForWeek([]accounting.WorkDetails{c}, week(2024, 6)))
	assert.Empty(t, accounting.ContractsForWeek([]accounting.WorkDetails{c}, week(2023, 39)))
}

// =============================================================================
// WEEKLY WEIGHT
// =============================================================================

func TestWeightForWeek_MidWeekStart(t *testing.T) {
	// GIVEN: 40h Mon-Fri contract starting Wednesday of 2024-W10
	// WHEN: Weighting week 10 and week 11
	// THEN: Week 10 keeps Wed-Fri (24h), week 11 is a full week

	c := fullTime(uuid.New(), week(2024, 10), week(2024, 52))
	c.FromDayOfWeek = calendar.Wednesday

	w10, err := accounting.WeightForWeek(c, week(2024, 10), 2024)
	require.NoError(t, err)
	assertHours(t, "24", w10.ExpectedHours)
	assert.Equal(t, 3, w10.WorkableDays)
	assertHours(t, "3", w10.WorkdaysPerWeek)

	w11, err := accounting.WeightForWeek(c, week(2024, 11), 2024)
	require.NoError(t, err)
	assertHours(t, "40", w11.ExpectedHours)
	assert.Equal(t, 5, w11.WorkableDays)
}

func TestWeightForWeek_EndsMidWeek(t *testing.T) {
	c := fullTime(uuid.New(), week(2024, 1), week(2024, 20))
	c.ToDayOfWeek = calendar.Tuesday

	w, err := accounting.WeightForWeek(c, week(2024, 20), 2024)
	require.NoError(t, err)
	assertHours(t, "16", w.ExpectedHours)
	assert.Equal(t, 2, w.WorkableDays)
}

func TestWeightForWeek_StartAndEndInSameWeek(t *testing.T) {
	c := fullTime(uuid.New(), week(2024, 8), week(2024, 8))
	c.FromDayOfWeek = calendar.Tuesday
	c.ToDayOfWeek = calendar.Thursday

	w, err := accounting.WeightForWeek(c, week(2024, 8), 2024)
	require.NoError(t, err)
	assertHours(t, "24", w.ExpectedHours)
}

func TestWeightForWeek_ProrationConservation(t *testing.T) {
	// GIVEN: A contract of whole weeks, Monday of W2 to Sunday of W30
	// WHEN: Weighting every week of 2024
	// THEN: Covered weeks return the full 40h, all others 0

	c := fullTime(uuid.New(), week(2024, 2), week(2024, 30))

	for w := 1; w <= calendar.WeeksInYear(2024); w++ {
		weight, err := accounting.WeightForWeek(c, week(2024, w), 2024)
		require.NoError(t, err)
		if w >= 2 && w <= 30 {
			assertHours(t, "40", weight.ExpectedHours, "week %d", w)
		} else {
			assert.True(t, weight.ExpectedHours.IsZero(), "week %d", w)
		}
	}
}

func TestWeightForWeek_YearBoundary(t *testing.T) {
	// GIVEN: 2025-W01 runs Mon 2024-12-30 .. Sun 2025-01-05
	// WHEN: Weighting it for 2025, for 2024, and without a year filter
	// THEN: 2025 keeps Wed-Fri, 2024 keeps Mon-Tue, no filter keeps all

	c := fullTime(uuid.New(), week(2024, 1), week(2025, 52))

	for _, tc := range []struct {
		name       string
		targetYear int
		want       string
		days       int
	}{
		{"target 2025", 2025, "24", 3},
		{"target 2024", 2024, "16", 2},
		{"no filter", 0, "40", 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w, err := accounting.WeightForWeek(c, week(2025, 1), tc.targetYear)
			require.NoError(t, err)
			assertHours(t, tc.want, w.ExpectedHours)
			assert.Equal(t, tc.days, w.WorkableDays)
		})
	}
}

func TestWeightForWeekInRange_ClipsToRange(t *testing.T) {
	c := fullTime(uuid.New(), week(2024, 1), week(2024, 52))
	// 2024-W10 is Mon 2024-03-04 .. Sun 2024-03-10
	r := calendar.NewRange(calendar.NewDate(2024, 3, 6), calendar.NewDate(2024, 3, 31))

	w, err := accounting.WeightForWeekInRange(c, week(2024, 10), r)
	require.NoError(t, err)
	assertHours(t, "24", w.ExpectedHours)
}

func TestWeightForWeek_EmptyMaskIsZero(t *testing.T) {
	c := fullTime(uuid.New(), week(2024, 1), week(2024, 52))
	c.Workdays = 0

	w, err := accounting.WeightForWeek(c, week(2024, 5), 2024)
	require.NoError(t, err)
	assert.True(t, w.ExpectedHours.IsZero())
	assert.Zero(t, w.WorkableDays)
}

func TestWeightForWeek_ThirdsStayExact(t *testing.T) {
	c := fullTime(uuid.New(), week(2024, 1), week(2024, 52))
	c.Workdays = accounting.NewWeekdays(calendar.Monday, calendar.Wednesday, calendar.Friday)
	c.WorkdaysPerWeek = 3
	c.FromWeek = 5
	c.FromDayOfWeek = calendar.Tuesday

	w, err := accounting.WeightForWeek(c, week(2024, 5), 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, w.WorkableDays)
	assertHours(t, "26.6666666666666667", w.ExpectedHours)
}

func TestWeightForWeek_InvalidWeekIsCalculationError(t *testing.T) {
	// GIVEN: A contract spanning a week number that does not exist (2021 has 52 weeks)
	// WHEN: Weighting 2021-W53
	// THEN: A calculation error is returned instead of a silent zero

	c := fullTime(uuid.New(), week(2021, 1), week(2022, 10))

	_, err := accounting.WeightForWeek(c, week(2021, 53), 0)
	require.Error(t, err)
	assert.True(t, accounting.IsCalculation(err))
	assert.ErrorIs(t, err, calendar.ErrInvalidISOWeek)
}

// =============================================================================
// CONTRACT HELPERS
// =============================================================================

func TestWorkDetails_VacationDaysForYear(t *testing.T) {
	id := uuid.New()

	full := fullTime(id, week(2024, 1), week(2024, 52))
	// Starts Monday 2024-01-01 (ordinal 1) and ends Sunday 2024-12-29,
	// two days short of the year: 30 * 363/366.
	assertHours(t, "29.75", full.VacationDaysForYear(2024).Round(2))
	assertHours(t, "30", full.VacationDaysForYear(2024).Round(0))
	assert.True(t, full.VacationDaysForYear(2023).IsZero())
	assert.True(t, full.VacationDaysForYear(2025).IsZero())

	// Starts Monday 2024-07-01, ordinal 183 of 366.
	half := fullTime(id, week(2024, 27), week(2025, 52))
	assertHours(t, "15", half.VacationDaysForYear(2024))
}

func TestWorkDetails_HoursPerDay(t *testing.T) {
	c := fullTime(uuid.New(), week(2024, 1), week(2024, 52))
	assertHours(t, "8", c.HoursPerDay())
	assertHours(t, "8", c.HolidayHours())

	c.WorkdaysPerWeek = 0
	assert.True(t, c.HoursPerDay().IsZero())
}
