package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
	"github.com/warp/workhours-engine/calendar"
	"github.com/warp/workhours-engine/store"
	"github.com/warp/workhours-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	hr    = accounting.AuthContext{UserID: "hr", Privileges: []string{accounting.PrivilegeHR}}
	sales = accounting.AuthContext{UserID: "sales", Privileges: []string{accounting.PrivilegeSales}}
	clock = time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	alice uuid.UUID
	bob   uuid.UUID
}

// newFixture seeds Alice with a 40h contract for 2024, booked 40h every
// week plus 3h of training in February, and Bob without contract.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	f := &fixture{t: t, ctx: ctx, store: st}

	yes, no := true, false
	f.alice, f.bob = uuid.New(), uuid.New()
	require.NoError(t, st.SaveSalesPerson(ctx, accounting.SalesPerson{ID: f.bob, Name: "Bob", IsPaid: &no}))
	require.NoError(t, st.SaveSalesPerson(ctx, accounting.SalesPerson{ID: f.alice, Name: "Alice", IsPaid: &yes}))

	require.NoError(t, st.SaveWorkDetails(ctx, accounting.WorkDetails{
		ID:              uuid.New(),
		SalesPersonID:   f.alice,
		ExpectedHours:   decimal.NewFromInt(40),
		FromDayOfWeek:   calendar.Monday,
		FromWeek:        1,
		FromYear:        2024,
		ToDayOfWeek:     calendar.Sunday,
		ToWeek:          52,
		ToYear:          2024,
		WorkdaysPerWeek: 5,
		Workdays:        accounting.MondayToFriday,
		VacationDays:    30,
	}))

	for d := calendar.Monday; d <= calendar.Friday; d++ {
		slot := accounting.Slot{ID: uuid.New(), DayOfWeek: d, From: 8 * time.Hour, To: 16 * time.Hour}
		require.NoError(t, st.SaveSlot(ctx, slot))
		for w := 1; w <= 52; w++ {
			require.NoError(t, st.SaveBooking(ctx, accounting.Booking{
				ID: uuid.New(), SalesPersonID: f.alice, SlotID: slot.ID, CalendarWeek: w, Year: 2024,
			}))
		}
	}

	training := accounting.CustomExtraHoursDefinition{ID: uuid.New(), Name: "training", ModifiesBalance: true}
	require.NoError(t, st.SaveCustomExtraHours(ctx, training))
	require.NoError(t, st.SaveExtraHours(ctx, accounting.ExtraHours{
		ID:            uuid.New(),
		SalesPersonID: f.alice,
		Amount:        decimal.NewFromInt(3),
		Category:      accounting.CustomCategory(training),
		DateTime:      time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC),
	}))
	return f
}

func (f *fixture) snapshotter() *billing.Snapshotter {
	return f.snapshotterWith(f.store)
}

func (f *fixture) snapshotterWith(repos billing.Repositories) *billing.Snapshotter {
	authz := accounting.PrivilegeAuthorizer{}
	reporter := accounting.NewReporter(f.store, authz, nil)
	return billing.NewSnapshotter(repos, reporter, authz, nil).WithClock(func() time.Time { return clock })
}

func (f *fixture) create(end calendar.Date) *billing.BillingPeriod {
	f.t.Helper()
	bp, err := f.snapshotter().CreateBillingPeriod(f.ctx, hr, end)
	require.NoError(f.t, err)
	return bp
}

func assertHours(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func date(y int, m time.Month, d int) calendar.Date { return calendar.NewDate(y, m, d) }

// =============================================================================
// START DATE CHAINING
// =============================================================================

func TestCreateBillingPeriod_StartDates(t *testing.T) {
	// GIVEN: No billing period exists
	// WHEN: Creating two consecutive periods
	// THEN: The first starts 1970-01-02, the next the day after the previous end

	f := newFixture(t)
	s := f.snapshotter()

	next, err := s.NextStartDate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, billing.FirstStartDate, next)

	first := f.create(date(2023, time.December, 31))
	assert.Equal(t, date(1970, time.January, 2), first.StartDate)
	assert.Equal(t, date(2023, time.December, 31), first.EndDate)

	second := f.create(date(2024, time.March, 31))
	assert.Equal(t, date(2024, time.January, 1), second.StartDate)

	latest, err := s.LatestEndDate(f.ctx, hr)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, date(2024, time.March, 31), *latest)
}

func TestCreateBillingPeriod_EndBeforeStartIsRejected(t *testing.T) {
	f := newFixture(t)
	f.create(date(2024, time.March, 31))

	_, err := f.snapshotter().CreateBillingPeriod(f.ctx, hr, date(2024, time.March, 30))
	require.Error(t, err)
	assert.True(t, accounting.IsClientError(err))

	periods, err := f.snapshotter().Overview(f.ctx, hr)
	require.NoError(t, err)
	assert.Len(t, periods, 1)
}

// =============================================================================
// VALUES
// =============================================================================

func TestCreateBillingPeriod_Values(t *testing.T) {
	// GIVEN: A period 2024-01-01 .. 2024-03-31 (13 full weeks)
	// WHEN: Creating it
	// THEN: The delta covers Q1, report_start is empty and FullYear covers 2024

	f := newFixture(t)
	f.create(date(2023, time.December, 31))
	bp := f.create(date(2024, time.March, 31))

	require.Len(t, bp.SalesPersons, 2)
	assert.Equal(t, f.alice, bp.SalesPersons[0].SalesPersonID, "sorted by name")
	assert.Equal(t, f.bob, bp.SalesPersons[1].SalesPersonID, "unpaid persons are billed too")

	alice, ok := bp.SalesPerson(f.alice)
	require.True(t, ok)

	overall := alice.Values[billing.ValueOverall]
	assertHours(t, "523", overall.Delta)
	assertHours(t, "0", overall.YTDFrom)
	assertHours(t, "523", overall.YTDTo)
	assertHours(t, "2083", overall.FullYear)

	expected := alice.Values[billing.ValueExpectedHours]
	assertHours(t, "520", expected.Delta)
	assertHours(t, "2080", expected.FullYear)

	assertHours(t, "3", alice.Values[billing.ValueBalance].Delta)
	assertHours(t, "30", alice.Values[billing.ValueVacationEntitlement].Delta)
	assertHours(t, "0", alice.Values[billing.ValueVacationEntitlement].YTDFrom)

	training, ok := alice.Values[billing.CustomValueType("training")]
	require.True(t, ok)
	assertHours(t, "3", training.Delta)
	assertHours(t, "3", training.FullYear)

	bob, ok := bp.SalesPerson(f.bob)
	require.True(t, ok)
	assert.True(t, bob.Values[billing.ValueBalance].FullYear.IsZero())
	_, ok = bob.Values[billing.CustomValueType("training")]
	assert.False(t, ok)

	assert.Equal(t, clock, bp.CreatedAt)
	assert.Equal(t, "hr", bp.CreatedBy)
	assert.Equal(t, bp.ID, alice.BillingPeriodID)
}

func TestCreateBillingPeriod_YearToDateIsAdditive(t *testing.T) {
	// GIVEN: Consecutive periods inside 2024
	// WHEN: Comparing the second period's values
	// THEN: YTDTo - YTDFrom == Delta for every tracked hour value

	f := newFixture(t)
	f.create(date(2023, time.December, 31))
	f.create(date(2024, time.March, 31))
	bp := f.create(date(2024, time.June, 30))

	alice, ok := bp.SalesPerson(f.alice)
	require.True(t, ok)

	for _, typ := range []billing.ValueType{
		billing.ValueOverall, billing.ValueExpectedHours, billing.ValueBalance,
		billing.ValueExtraWork, billing.ValueVacationHours,
	} {
		v := alice.Values[typ]
		assert.True(t, v.YTDTo.Sub(v.YTDFrom).Equal(v.Delta), "value %s", typ)
	}
	assertHours(t, "520", alice.Values[billing.ValueOverall].Delta)
	assertHours(t, "523", alice.Values[billing.ValueOverall].YTDFrom)
	_, ok = alice.Values[billing.CustomValueType("training")]
	assert.False(t, ok, "custom values come from the delta report")
}

func TestBuildBillingPeriod_DoesNotPersist(t *testing.T) {
	f := newFixture(t)
	bp, err := f.snapshotter().BuildBillingPeriod(f.ctx, hr, date(2023, time.December, 31))
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, bp.ID)

	latest, err := f.store.LatestBillingPeriodEnd(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

// =============================================================================
// READ & DELETE
// =============================================================================

func TestBillingPeriod_ReadAndDelete(t *testing.T) {
	f := newFixture(t)
	s := f.snapshotter()
	first := f.create(date(2023, time.December, 31))
	second := f.create(date(2024, time.March, 31))

	loaded, err := s.BillingPeriod(f.ctx, hr, second.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.SalesPersons, 2)

	require.NoError(t, s.DeleteBillingPeriod(f.ctx, hr, second.ID))

	_, err = s.BillingPeriod(f.ctx, hr, second.ID)
	assert.True(t, accounting.IsNotFound(err))

	next, err := s.NextStartDate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 1), next, "deleted periods no longer chain")

	err = s.DeleteBillingPeriod(f.ctx, hr, second.ID)
	assert.True(t, accounting.IsNotFound(err))

	periods, err := s.Overview(f.ctx, hr)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, first.ID, periods[0].ID)
}

func TestBillingPeriod_ClearAllRestartsAtFirstStart(t *testing.T) {
	f := newFixture(t)
	s := f.snapshotter()
	f.create(date(2023, time.December, 31))
	f.create(date(2024, time.March, 31))

	require.NoError(t, s.ClearAll(f.ctx, hr))

	periods, err := s.Overview(f.ctx, hr)
	require.NoError(t, err)
	assert.Empty(t, periods)

	next, err := s.NextStartDate(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, billing.FirstStartDate, next)
}

// =============================================================================
// AUTHORIZATION & FAILURES
// =============================================================================

func TestSnapshotter_RequiresHR(t *testing.T) {
	f := newFixture(t)
	bp := f.create(date(2023, time.December, 31))
	s := f.snapshotter()

	_, err := s.CreateBillingPeriod(f.ctx, sales, date(2024, time.March, 31))
	assert.ErrorIs(t, err, accounting.ErrForbidden)
	_, err = s.Overview(f.ctx, sales)
	assert.ErrorIs(t, err, accounting.ErrForbidden)
	_, err = s.BillingPeriod(f.ctx, sales, bp.ID)
	assert.ErrorIs(t, err, accounting.ErrForbidden)
	_, err = s.LatestEndDate(f.ctx, sales)
	assert.ErrorIs(t, err, accounting.ErrForbidden)
	assert.ErrorIs(t, s.DeleteBillingPeriod(f.ctx, sales, bp.ID), accounting.ErrForbidden)
	assert.ErrorIs(t, s.ClearAll(f.ctx, sales), accounting.ErrForbidden)
	_, err = s.CustomReport(f.ctx, sales, uuid.New(), bp.ID)
	assert.ErrorIs(t, err, accounting.ErrForbidden)
}

type failingCreate struct {
	*memory.Store
}

func (failingCreate) CreateBillingPeriod(context.Context, billing.BillingPeriod) error {
	return errors.New("disk full")
}

func TestCreateBillingPeriod_StorageFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.snapshotterWith(failingCreate{f.store}).CreateBillingPeriod(f.ctx, hr, date(2023, time.December, 31))
	require.Error(t, err)
	assert.ErrorIs(t, err, accounting.ErrStorage)

	latest, err := f.store.LatestBillingPeriodEnd(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCreateBillingPeriod_RollsBackWithTransaction(t *testing.T) {
	// GIVEN: A transaction that creates a period and then fails
	// WHEN: The transaction returns the error
	// THEN: No period is stored

	f := newFixture(t)
	boom := errors.New("later step failed")

	err := f.store.WithTx(f.ctx, func(tx store.Tx) error {
		authz := accounting.PrivilegeAuthorizer{}
		s := billing.NewSnapshotter(tx, accounting.NewReporter(tx, authz, nil), authz, nil)
		if _, err := s.CreateBillingPeriod(f.ctx, hr, date(2023, time.December, 31)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	periods, err := f.snapshotter().Overview(f.ctx, hr)
	require.NoError(t, err)
	assert.Empty(t, periods)
}
