package accounting_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
)

// bookedWeeks returns 8h per weekday Mon-Fri for weeks from..to of year.
func bookedWeeks(salesPersonID uuid.UUID, year, from, to int) []accounting.ShiftplanHoursEntry {
	var entries []accounting.ShiftplanHoursEntry
	for w := from; w <= to; w++ {
		for d := calendar.Monday; d <= calendar.Friday; d++ {
			entries = append(entries, accounting.ShiftplanHoursEntry{
				SalesPersonID: salesPersonID,
				Year:          year,
				Week:          w,
				DayOfWeek:     d,
				Hours:         decimal.NewFromInt(8),
			})
		}
	}
	return entries
}

func on(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

func weekSpan(t *testing.T, w calendar.Week) calendar.Range {
	t.Helper()
	span, err := w.Span()
	require.NoError(t, err)
	return span
}

func TestHoursForWeek_BalanceIdentity(t *testing.T) {
	// GIVEN: A year with shifts, extra work, absences and custom hours
	// WHEN: Aggregating every week
	// THEN: balance == overall - expected == overall - contract + absence

	id := uuid.New()
	training := accounting.CustomCategory(accounting.CustomExtraHoursDefinition{ID: uuid.New(), Name: "training", ModifiesBalance: true})
	src := accounting.Sources{
		Contracts: []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2024, 30))},
		Shiftplan: bookedWeeks(id, 2024, 1, 40),
		ExtraHours: []accounting.ExtraHours{
			extra("8", accounting.Vacation, on(2024, time.February, 5)),
			extra("8", accounting.SickLeave, on(2024, time.March, 12)),
			extra("8", accounting.Holiday, on(2024, time.May, 1)),
			extra("2.5", accounting.ExtraWork, on(2024, time.June, 3)),
			extra("3", training, on(2024, time.June, 4)),
			extra("8", accounting.Vacation, on(2024, time.October, 7)),
		},
	}

	weeks, err := accounting.HoursPerWeekForYear(2024, calendar.WeeksInYear(2024)+1, src)
	require.NoError(t, err)
	require.NotEmpty(t, weeks)

	for _, w := range weeks {
		assert.True(t, w.Balance.Equal(w.OverallHours.Sub(w.ExpectedHours)), "week %s", w.CalendarWeek())
		assert.True(t, w.Balance.Equal(w.OverallHours.Sub(w.ContractWeeklyHours).Add(w.AbsenceHours)), "week %s", w.CalendarWeek())
	}
}

func TestHoursForWeek_ZeroExpectationCarveOut(t *testing.T) {
	// GIVEN: A week outside any contract with 10 booked hours
	// WHEN: Adding 4h of extra work
	// THEN: Overall and expected both grow by 4, balance is unchanged

	id := uuid.New()
	w := week(2024, 40)
	base := accounting.Sources{
		Contracts: []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2024, 30))},
		Shiftplan: []accounting.ShiftplanHoursEntry{{SalesPersonID: id, Year: 2024, Week: 40, DayOfWeek: calendar.Tuesday, Hours: hours("10")}},
	}
	withExtra := base
	withExtra.ExtraHours = []accounting.ExtraHours{
		extra("4", accounting.ExtraWork, on(2024, time.October, 2)),
		extra("8", accounting.Vacation, on(2024, time.October, 3)),
	}

	before, err := accounting.HoursForWeek(w, weekSpan(t, w), base, accounting.WeightForWeekInRange)
	require.NoError(t, err)
	after, err := accounting.HoursForWeek(w, weekSpan(t, w), withExtra, accounting.WeightForWeekInRange)
	require.NoError(t, err)

	assertHours(t, "4", after.OverallHours.Sub(before.OverallHours))
	assertHours(t, "4", after.ExpectedHours.Sub(before.ExpectedHours))
	assert.True(t, after.Balance.Equal(before.Balance))
	assert.True(t, after.Balance.IsZero())
	assert.True(t, after.AbsenceHours.IsZero(), "absence is dropped without expectation")
	assertHours(t, "8", after.VacationHours, "category totals still show the entry")
}

func TestHoursForWeek_AbsenceReducesExpectation(t *testing.T) {
	id := uuid.New()
	w := week(2024, 6)
	src := accounting.Sources{
		Contracts:  []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2024, 52))},
		Shiftplan:  bookedWeeks(id, 2024, 6, 6)[:4],
		ExtraHours: []accounting.ExtraHours{extra("8", accounting.Vacation, on(2024, time.February, 9))},
	}

	g, err := accounting.HoursForWeek(w, weekSpan(t, w), src, accounting.WeightForWeekInRange)
	require.NoError(t, err)

	assertHours(t, "40", g.ContractWeeklyHours)
	assertHours(t, "32", g.ExpectedHours)
	assertHours(t, "32", g.OverallHours)
	assert.True(t, g.Balance.IsZero())
	assertHours(t, "1", g.VacationDays())
	assertHours(t, "1", g.AbsenceDays())
	assert.Equal(t, 5, g.DaysPerWeek)
}

func TestHoursForWeek_DayBreakdownSortedByDate(t *testing.T) {
	id := uuid.New()
	w := week(2024, 6)
	src := accounting.Sources{
		Contracts: []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2024, 52))},
		Shiftplan: bookedWeeks(id, 2024, 6, 6)[1:3],
		ExtraHours: []accounting.ExtraHours{
			extra("8", accounting.SickLeave, on(2024, time.February, 9)),
			extra("8", accounting.Vacation, on(2024, time.February, 5)),
		},
	}

	g, err := accounting.HoursForWeek(w, weekSpan(t, w), src, accounting.WeightForWeekInRange)
	require.NoError(t, err)
	require.Len(t, g.Days, 4)

	assert.Equal(t, accounting.CategoryVacation, g.Days[0].Category)
	assert.Equal(t, calendar.NewDate(2024, time.February, 5), g.Days[0].Date)
	assert.Equal(t, accounting.CategoryShiftplan, g.Days[1].Category)
	assert.Equal(t, accounting.CategoryShiftplan, g.Days[2].Category)
	assert.Equal(t, accounting.CategorySickLeave, g.Days[3].Category)
}

func TestHoursPerWeekForYear_SplitsNewYearWeek(t *testing.T) {
	// GIVEN: 2025-W01 starts Monday 2024-12-30
	// WHEN: Aggregating 2024 including the trailing virtual week
	// THEN: The last record is 2025-W01 clipped to Dec 30-31 with 16h expected

	id := uuid.New()
	src := accounting.Sources{
		Contracts: []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2025, 52))},
	}

	weeks, err := accounting.HoursPerWeekForYear(2024, calendar.WeeksInYear(2024)+1, src)
	require.NoError(t, err)
	require.Len(t, weeks, 53)

	first, last := weeks[0], weeks[len(weeks)-1]
	assert.Equal(t, week(2024, 1), first.CalendarWeek())
	assert.Equal(t, week(2025, 1), last.CalendarWeek())
	assert.Equal(t, calendar.NewDate(2024, time.December, 31), last.To)
	assertHours(t, "16", last.ContractWeeklyHours)

	next, err := accounting.HoursPerWeekForYear(2025, 1, src)
	require.NoError(t, err)
	require.Len(t, next, 1, "virtual week 0 (2024-W52) lies entirely in 2024")
	assert.Equal(t, calendar.NewDate(2025, time.January, 1), next[0].From)
	assertHours(t, "24", next[0].ContractWeeklyHours)
}

func TestHoursPerWeek_RangeExcludesEntriesOutsideRange(t *testing.T) {
	id := uuid.New()
	src := accounting.Sources{
		Contracts: []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2024, 52))},
		Shiftplan: bookedWeeks(id, 2024, 10, 10),
		ExtraHours: []accounting.ExtraHours{
			extra("8", accounting.Vacation, on(2024, time.March, 4)),
		},
	}
	// Wednesday to Friday of 2024-W10
	r := calendar.NewRange(calendar.NewDate(2024, time.March, 6), calendar.NewDate(2024, time.March, 8))

	weeks, err := accounting.HoursPerWeek(r, src)
	require.NoError(t, err)
	require.Len(t, weeks, 1)

	assertHours(t, "24", weeks[0].ContractWeeklyHours)
	assertHours(t, "24", weeks[0].ShiftplanHours)
	assert.True(t, weeks[0].VacationHours.IsZero())
	assert.True(t, weeks[0].Balance.IsZero())
}

func TestHoursForWeek_CustomTotals(t *testing.T) {
	id := uuid.New()
	w := week(2024, 6)
	training := accounting.CustomCategory(accounting.CustomExtraHoursDefinition{ID: uuid.New(), Name: "training", ModifiesBalance: true})
	onCall := accounting.CustomCategory(accounting.CustomExtraHoursDefinition{ID: uuid.New(), Name: "on call"})
	src := accounting.Sources{
		Contracts: []accounting.WorkDetails{fullTime(id, week(2024, 1), week(2024, 52))},
		ExtraHours: []accounting.ExtraHours{
			extra("2", training, on(2024, time.February, 5)),
			extra("1", training, on(2024, time.February, 6)),
			extra("5", onCall, on(2024, time.February, 7)),
		},
	}

	g, err := accounting.HoursForWeek(w, weekSpan(t, w), src, accounting.WeightForWeekInRange)
	require.NoError(t, err)

	require.Len(t, g.CustomExtraHours, 2)
	assert.Equal(t, "on call", g.CustomExtraHours[0].Name)
	assertHours(t, "5", g.CustomExtraHours[0].Hours)
	assert.Equal(t, "training", g.CustomExtraHours[1].Name)
	assertHours(t, "3", g.CustomExtraHours[1].Hours)
	assertHours(t, "3", g.OverallHours, "only balance-modifying custom hours count")
}
