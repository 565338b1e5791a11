package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
)

func TestParseValueType(t *testing.T) {
	for _, s := range []string{"balance", "overall", "expected_hours", "extra_work", "vacation_hours",
		"sick_leave", "holiday", "vacation_days", "vacation_entitlement"} {
		v, err := billing.ParseValueType(s)
		require.NoError(t, err, s)
		assert.Equal(t, billing.ValueType(s), v)
	}

	v, err := billing.ParseValueType("custom_extra_hours:on call")
	require.NoError(t, err)
	name, ok := v.CustomName()
	assert.True(t, ok)
	assert.Equal(t, "on call", name)

	for _, bad := range []string{"", "overtime", "custom_extra_hours:"} {
		_, err := billing.ParseValueType(bad)
		assert.True(t, accounting.IsClientError(err), "%q", bad)
	}
}

func TestBillingPeriodSalesPerson_ValueTypesSorted(t *testing.T) {
	sp := billing.BillingPeriodSalesPerson{Values: map[billing.ValueType]billing.Value{
		billing.ValueOverall:                {},
		billing.ValueBalance:                {},
		billing.CustomValueType("training"): {Delta: decimal.NewFromInt(1)},
	}}

	assert.Equal(t, []billing.ValueType{
		billing.ValueBalance,
		billing.CustomValueType("training"),
		billing.ValueOverall,
	}, sp.ValueTypes())
}
