package billing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
)

const payrollTemplate = `Billing {{ .BillingPeriod.StartDate }} - {{ .BillingPeriod.EndDate }}
{{ range .BillingPeriod.SalesPersons }}{{ .Name }}: {{ round (hours .Values "overall") 0 }} / {{ round (hours .Values "balance") 1 }}
{{ end }}`

func TestCustomReport_RendersBillingPeriod(t *testing.T) {
	// GIVEN: A stored payroll template and the Q1 2024 period
	// WHEN: Rendering the period through the template
	// THEN: Each sales person gets one line with rounded values

	f := newFixture(t)
	s := f.snapshotter()
	f.create(date(2023, time.December, 31))
	bp := f.create(date(2024, time.March, 31))

	tt, err := s.SaveTemplate(f.ctx, hr, billing.TextTemplate{Name: "payroll", TemplateType: "billing_period", Body: payrollTemplate})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tt.ID)
	assert.Equal(t, "hr", tt.CreatedBy)

	out, err := s.CustomReport(f.ctx, hr, tt.ID, bp.ID)
	require.NoError(t, err)

	want := "Billing 2024-01-01 - 2024-03-31\n" +
		"Alice: 523 / 3.0\n" +
		"Bob: 0 / 0.0\n"
	assert.Equal(t, want, out)
}

func TestCustomReport_CustomValuesAndMissingTypes(t *testing.T) {
	f := newFixture(t)
	s := f.snapshotter()
	f.create(date(2023, time.December, 31))
	bp := f.create(date(2024, time.March, 31))

	body := `{{ range .BillingPeriod.SalesPersons }}{{ .Name }}={{ round (hours .Values "custom_extra_hours:training") 2 }},{{ round (hours .Values "bonus") 0 }};{{ end }}`
	tt, err := s.SaveTemplate(f.ctx, hr, billing.TextTemplate{Name: "custom", Body: body})
	require.NoError(t, err)

	out, err := s.CustomReport(f.ctx, hr, tt.ID, bp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice=3.00,0;Bob=0.00,0;", out)
}

func TestSaveTemplate_RejectsInvalidBody(t *testing.T) {
	f := newFixture(t)

	_, err := f.snapshotter().SaveTemplate(f.ctx, hr, billing.TextTemplate{Name: "broken", Body: "{{ range }"})
	require.Error(t, err)
	assert.True(t, accounting.IsClientError(err))

	_, err = f.snapshotter().SaveTemplate(f.ctx, sales, billing.TextTemplate{Name: "ok", Body: "hello"})
	assert.ErrorIs(t, err, accounting.ErrForbidden)
}

func TestCustomReport_NotFound(t *testing.T) {
	f := newFixture(t)
	s := f.snapshotter()
	bp := f.create(date(2023, time.December, 31))

	_, err := s.CustomReport(f.ctx, hr, uuid.New(), bp.ID)
	var nf *accounting.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "text template", nf.Entity)

	tt, err := s.SaveTemplate(f.ctx, hr, billing.TextTemplate{Name: "t", Body: "x"})
	require.NoError(t, err)

	_, err = s.CustomReport(f.ctx, hr, tt.ID, uuid.New())
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "billing period", nf.Entity)
}
