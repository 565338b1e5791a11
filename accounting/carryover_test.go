package accounting_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
)

// aliceIn2024 books a full 2024 year with one vacation day and 3h extra
// work: balance 11h, 29 vacation days left.
func aliceIn2024(f *fixture) uuid.UUID {
	f.t.Helper()
	id := f.person("Alice", true)
	f.contract(fullTime(id, week(2024, 1), week(2024, 52)))
	f.book(id, 2024, 1, 52)
	f.extra(id, "8", accounting.Vacation, on(2024, time.February, 5))
	f.extra(id, "3", accounting.ExtraWork, on(2024, time.February, 7))
	return id
}

func (f *fixture) carryover() *accounting.CarryoverUpdater {
	created := time.Date(2025, time.January, 2, 3, 0, 0, 0, time.UTC)
	return accounting.NewCarryoverUpdater(f.store, f.reporter(), authz, nil).
		WithClock(func() time.Time { return created })
}

func TestUpdateCarryover_BalanceAndVacationLeft(t *testing.T) {
	// GIVEN: A 2024 year ending with an 11h balance and one vacation day taken
	// WHEN: HR updates the 2024 carryover twice
	// THEN: Both runs record 11h and 29 days

	f := newFixture(t)
	id := aliceIn2024(f)

	first, err := f.carryover().UpdateCarryover(f.ctx, hr, id, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, first.Year)
	assertHours(t, "11", first.CarryoverHours)
	assert.Equal(t, 29, first.Vacation)

	second, err := f.carryover().UpdateCarryover(f.ctx, hr, id, 2024)
	require.NoError(t, err)
	assertHours(t, "11", second.CarryoverHours)
	assert.Equal(t, 29, second.Vacation)

	stored, err := f.store.FindCarryover(f.ctx, id, 2024)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assertHours(t, "11", stored.CarryoverHours)
}

func TestUpdateCarryover_ChainsPreviousYear(t *testing.T) {
	// GIVEN: 5h and 2 days carried into 2024 by hand
	// WHEN: Updating the 2024 carryover
	// THEN: The 2024 report keeps its own balance and the carryover sums both years

	f := newFixture(t)
	id := aliceIn2024(f)
	_, err := f.carryover().SetCarryover(f.ctx, hr, accounting.Carryover{
		SalesPersonID: id, Year: 2023, CarryoverHours: hours("5"), Vacation: 2,
	})
	require.NoError(t, err)

	report, err := f.reporter().ReportForEmployee(f.ctx, hr, id, 2024, 52)
	require.NoError(t, err)
	assertHours(t, "11", report.BalanceHours)
	assertHours(t, "5", report.CarryoverHours)
	assert.Equal(t, 2, report.VacationCarryover)
	assertHours(t, "32", report.VacationEntitlement)

	c, err := f.carryover().UpdateCarryover(f.ctx, hr, id, 2024)
	require.NoError(t, err)
	assertHours(t, "16", c.CarryoverHours)
	assert.Equal(t, 31, c.Vacation)
}

func TestReports_ShowCarryoverNextToBalance(t *testing.T) {
	// GIVEN: A recorded 2024 carryover and no 2025 activity
	// WHEN: Reporting 2025
	// THEN: Carryover is shown, the balance stays overall - expected

	f := newFixture(t)
	id := aliceIn2024(f)
	_, err := f.carryover().UpdateCarryover(f.ctx, hr, id, 2024)
	require.NoError(t, err)

	report, err := f.reporter().ReportForEmployee(f.ctx, hr, id, 2025, 10)
	require.NoError(t, err)
	assertHours(t, "11", report.CarryoverHours)
	assert.True(t, report.BalanceHours.IsZero(), report.BalanceHours.String())
	assert.Equal(t, 29, report.VacationCarryover)
	assertHours(t, "29", report.VacationEntitlement)

	short, err := f.reporter().ReportsForAllEmployees(f.ctx, hr, 2025, 10)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assertHours(t, "11", short[0].CarryoverHours)
	assert.True(t, short[0].BalanceHours.Equal(short[0].OverallHours.Sub(short[0].ExpectedHours)))
}

func TestUpdateCarryoverAllEmployees_SkipsUnpaid(t *testing.T) {
	f := newFixture(t)
	alice := aliceIn2024(f)
	bob := f.person("Bob", false)
	f.contract(fullTime(bob, week(2024, 1), week(2024, 52)))

	updated, err := f.carryover().UpdateCarryoverAllEmployees(f.ctx, hr, 2024)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, alice, updated[0].SalesPersonID)

	c, err := f.store.FindCarryover(f.ctx, bob, 2024)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCarryover_AuthorizationAndLookup(t *testing.T) {
	f := newFixture(t)
	id := aliceIn2024(f)
	u := f.carryover()

	_, err := u.UpdateCarryover(f.ctx, sales, id, 2024)
	assert.ErrorIs(t, err, accounting.ErrForbidden)

	_, err = u.UpdateCarryoverAllEmployees(f.ctx, sales, 2024)
	assert.ErrorIs(t, err, accounting.ErrForbidden)

	_, err = u.SetCarryover(f.ctx, sales, accounting.Carryover{SalesPersonID: id, Year: 2024})
	assert.ErrorIs(t, err, accounting.ErrForbidden)

	_, err = u.SetCarryover(f.ctx, hr, accounting.Carryover{SalesPersonID: uuid.New(), Year: 2024})
	var nf *accounting.NotFoundError
	require.True(t, errors.As(err, &nf), err)
	assert.Equal(t, "sales person", nf.Entity)

	self := sales
	self.SalesPersonID = &id
	c, err := u.Carryover(f.ctx, self, id, 2024)
	require.NoError(t, err)
	assert.Nil(t, c, "nothing recorded yet")

	_, err = u.Carryover(f.ctx, sales, id, 2024)
	assert.True(t, accounting.IsForbidden(err))
}
