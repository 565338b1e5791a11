/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario loads inside one transaction and yields the
	figures its description promises. The first two mirror the documented
	balance examples and double as integration tests of the engine.
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
	"github.com/warp/workhours-engine/store"
	"github.com/warp/workhours-engine/store/memory"
	"github.com/warp/workhours-engine/store/sqlite"
)

func TestListScenarios(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(anonymous, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []ScenarioDTO
	decode(t, rec, &list)
	require.Len(t, list, len(scenarioLoaders))
	for _, sc := range list {
		assert.Contains(t, scenarioLoaders, sc.ID, "scenario %s has no loader", sc.ID)
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(hrUser, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(hrUser, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(salesUser, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "full-time-2024"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	all, err := s.store.AllSalesPersons(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "forbidden load must not leave data behind")
}

func TestPartTimeScenario_Report(t *testing.T) {
	// GIVEN: The part-time scenario: 24h Mon-Wed, booked in Q1 only
	// WHEN: Reporting January through March
	// THEN: Absences reduce the expectation, on-call hours are listed but not counted

	s := newTestServer(t)
	id := s.loadScenario("part-time-with-absences")

	ctx := context.Background()
	var report *accounting.EmployeeReport
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		report, err = accounting.NewReporter(tx, accounting.PrivilegeAuthorizer{}, nil).
			ReportForEmployeeRange(ctx, hrUser, id, calendar.NewDate(2024, time.January, 1), calendar.NewDate(2024, time.March, 31))
		return err
	})
	require.NoError(t, err)

	// 13 weeks * 24h, minus 16h vacation and 8h sick leave.
	assert.True(t, decimal.NewFromInt(288).Equal(report.ExpectedHours), report.ExpectedHours.String())
	// The same 288h booked plus 4h extra work.
	assert.True(t, decimal.NewFromInt(292).Equal(report.OverallHours), report.OverallHours.String())
	assert.True(t, decimal.NewFromInt(4).Equal(report.BalanceHours), report.BalanceHours.String())
	assert.True(t, decimal.NewFromInt(3).Equal(report.AbsenceDays), report.AbsenceDays.String())
	assert.True(t, decimal.NewFromInt(8).Equal(report.SickLeaveHours))
	assert.True(t, decimal.NewFromInt(6).Equal(report.CustomHours("on call")))
	assert.True(t, decimal.NewFromInt(18).Equal(report.VacationEntitlement))
}

func TestScenario_LoadsIntoSQLite(t *testing.T) {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for id, load := range scenarioLoaders {
		err := st.WithTx(ctx, func(tx store.Tx) error {
			_, err := load(ctx, tx, fixedNow)
			return err
		})
		require.NoError(t, err, id)
	}

	err = st.WithTx(ctx, func(tx store.Tx) error {
		persons, err := tx.AllSalesPersons(ctx)
		require.NoError(t, err)
		assert.Len(t, persons, len(scenarioLoaders))
		return nil
	})
	require.NoError(t, err)
}

func TestScenarioBuilder_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	b := scenarioBuilder{ctx: context.Background(), tx: memory.New(), now: fixedNow}

	calls := 0
	b.do(func() error { calls++; return boom })
	b.do(func() error { calls++; return nil })
	b.salesPerson("ignored", "#000000")

	assert.ErrorIs(t, b.err, boom)
	assert.Equal(t, 1, calls)

	persons, err := b.tx.AllSalesPersons(b.ctx)
	require.NoError(t, err)
	assert.Empty(t, persons)
}
