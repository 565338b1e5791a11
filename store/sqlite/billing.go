package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/workhours-engine/billing"
	"github.com/warp/workhours-engine/calendar"
)

// =============================================================================
// BILLING PERIODS
// =============================================================================

const billingPeriodColumns = `id, start_date, end_date, created_at, created_by, deleted, deleted_by`

func (ts *txStore) LatestBillingPeriodEnd(ctx context.Context) (*calendar.Date, error) {
	var end sql.NullString
	err := ts.q.GetContext(ctx, &end, `SELECT MAX(end_date) FROM billing_period WHERE deleted IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest billing period: %w", err)
	}
	if !end.Valid {
		return nil, nil
	}
	d, err := calendar.ParseDate(end.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse billing period end %q: %w", end.String, err)
	}
	return &d, nil
}

func (ts *txStore) AllBillingPeriods(ctx context.Context) ([]billing.BillingPeriod, error) {
	var rows []billingPeriodRow
	err := ts.q.SelectContext(ctx, &rows,
		`SELECT `+billingPeriodColumns+` FROM billing_period WHERE deleted IS NULL ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing periods: %w", err)
	}
	result := make([]billing.BillingPeriod, len(rows))
	for i, r := range rows {
		result[i] = r.toDomain()
	}
	return result, nil
}

func (ts *txStore) FindBillingPeriod(ctx context.Context, id uuid.UUID) (*billing.BillingPeriod, error) {
	var row billingPeriodRow
	found, err := ts.get(ctx, &row,
		`SELECT `+billingPeriodColumns+` FROM billing_period WHERE id = ? AND deleted IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing period %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	bp := row.toDomain()

	var persons []billingPeriodSalesPersonRow
	err = ts.q.SelectContext(ctx, &persons, `
		SELECT p.id, p.billing_period_id, p.sales_person_id, p.created_at, p.created_by, p.deleted, p.deleted_by
		FROM billing_period_sales_person p
		JOIN sales_person s ON s.id = p.sales_person_id
		WHERE p.billing_period_id = ? AND p.deleted IS NULL
		ORDER BY s.name, p.sales_person_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing period sales persons: %w", err)
	}

	var values []billingPeriodValueRow
	err = ts.q.SelectContext(ctx, &values, `
		SELECT v.billing_period_sales_person_id, v.value_type, v.value_delta,
			v.value_ytd_from, v.value_ytd_to, v.value_full_year
		FROM billing_period_value v
		JOIN billing_period_sales_person p ON p.id = v.billing_period_sales_person_id
		WHERE p.billing_period_id = ? AND p.deleted IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing period values: %w", err)
	}

	byPerson := make(map[uuid.UUID]map[billing.ValueType]billing.Value, len(persons))
	for _, v := range values {
		typ, err := billing.ParseValueType(v.ValueType)
		if err != nil {
			return nil, fmt.Errorf("billing period %s: %w", id, err)
		}
		if byPerson[v.SalesPersonRowID] == nil {
			byPerson[v.SalesPersonRowID] = make(map[billing.ValueType]billing.Value)
		}
		byPerson[v.SalesPersonRowID][typ] = billing.Value{
			Delta:    v.Delta,
			YTDFrom:  v.YTDFrom,
			YTDTo:    v.YTDTo,
			FullYear: v.FullYear,
		}
	}
	for _, p := range persons {
		bp.SalesPersons = append(bp.SalesPersons, billing.BillingPeriodSalesPerson{
			ID:              p.ID,
			BillingPeriodID: p.BillingPeriodID,
			SalesPersonID:   p.SalesPersonID,
			Values:          byPerson[p.ID],
			CreatedAt:       p.CreatedAt,
			CreatedBy:       p.CreatedBy,
			Deleted:         p.Deleted,
			DeletedBy:       p.DeletedBy,
		})
	}
	return &bp, nil
}

// CreateBillingPeriod inserts the header, one row per sales person and
// one row per value.
func (ts *txStore) CreateBillingPeriod(ctx context.Context, bp billing.BillingPeriod) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO billing_period (`+billingPeriodColumns+`)
		VALUES (:id, :start_date, :end_date, :created_at, :created_by, :deleted, :deleted_by)`,
		billingPeriodRow{
			ID:        bp.ID,
			StartDate: bp.StartDate,
			EndDate:   bp.EndDate,
			CreatedAt: bp.CreatedAt.UTC(),
			CreatedBy: bp.CreatedBy,
		})
	if err != nil {
		return fmt.Errorf("failed to create billing period %s: %w", bp.ID, err)
	}

	for _, sp := range bp.SalesPersons {
		_, err := ts.q.NamedExecContext(ctx, `
			INSERT INTO billing_period_sales_person (id, billing_period_id, sales_person_id, created_at, created_by, deleted, deleted_by)
			VALUES (:id, :billing_period_id, :sales_person_id, :created_at, :created_by, :deleted, :deleted_by)`,
			billingPeriodSalesPersonRow{
				ID:              sp.ID,
				BillingPeriodID: bp.ID,
				SalesPersonID:   sp.SalesPersonID,
				CreatedAt:       sp.CreatedAt.UTC(),
				CreatedBy:       sp.CreatedBy,
			})
		if err != nil {
			return fmt.Errorf("failed to create billing period sales person %s: %w", sp.SalesPersonID, err)
		}

		for _, typ := range sp.ValueTypes() {
			v := sp.Values[typ]
			_, err := ts.q.NamedExecContext(ctx, `
				INSERT INTO billing_period_value (billing_period_sales_person_id, value_type,
					value_delta, value_ytd_from, value_ytd_to, value_full_year)
				VALUES (:billing_period_sales_person_id, :value_type,
					:value_delta, :value_ytd_from, :value_ytd_to, :value_full_year)`,
				billingPeriodValueRow{
					SalesPersonRowID: sp.ID,
					ValueType:        string(typ),
					Delta:            v.Delta,
					YTDFrom:          v.YTDFrom,
					YTDTo:            v.YTDTo,
					FullYear:         v.FullYear,
				})
			if err != nil {
				return fmt.Errorf("failed to create billing period value %s: %w", typ, err)
			}
		}
	}
	return nil
}

func (ts *txStore) DeleteBillingPeriod(ctx context.Context, id uuid.UUID, at time.Time, by string) error {
	res, err := ts.q.ExecContext(ctx,
		`UPDATE billing_period SET deleted = ?, deleted_by = ? WHERE id = ? AND deleted IS NULL`,
		at.UTC(), by, id)
	if err != nil {
		return fmt.Errorf("failed to delete billing period %s: %w", id, err)
	}
	if err := requireAffected(res, "billing period", id); err != nil {
		return err
	}
	_, err = ts.q.ExecContext(ctx,
		`UPDATE billing_period_sales_person SET deleted = ?, deleted_by = ? WHERE billing_period_id = ? AND deleted IS NULL`,
		at.UTC(), by, id)
	if err != nil {
		return fmt.Errorf("failed to delete billing period sales persons %s: %w", id, err)
	}
	return nil
}

func (ts *txStore) DeleteAllBillingPeriods(ctx context.Context, at time.Time, by string) error {
	if _, err := ts.q.ExecContext(ctx,
		`UPDATE billing_period_sales_person SET deleted = ?, deleted_by = ? WHERE deleted IS NULL`,
		at.UTC(), by); err != nil {
		return fmt.Errorf("failed to clear billing period sales persons: %w", err)
	}
	if _, err := ts.q.ExecContext(ctx,
		`UPDATE billing_period SET deleted = ?, deleted_by = ? WHERE deleted IS NULL`,
		at.UTC(), by); err != nil {
		return fmt.Errorf("failed to clear billing periods: %w", err)
	}
	return nil
}

// =============================================================================
// TEXT TEMPLATES
// =============================================================================

const textTemplateColumns = `id, name, template_type, template_text, created_at, created_by, deleted, version`

func (ts *txStore) FindTextTemplate(ctx context.Context, id uuid.UUID) (*billing.TextTemplate, error) {
	var row textTemplateRow
	found, err := ts.get(ctx, &row,
		`SELECT `+textTemplateColumns+` FROM text_template WHERE id = ? AND deleted IS NULL`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load text template %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	t := row.toDomain()
	return &t, nil
}

func (ts *txStore) SaveTextTemplate(ctx context.Context, t billing.TextTemplate) error {
	_, err := ts.q.NamedExecContext(ctx, `
		INSERT INTO text_template (`+textTemplateColumns+`)
		VALUES (:id, :name, :template_type, :template_text, :created_at, :created_by, :deleted, :version)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			template_type = excluded.template_type,
			template_text = excluded.template_text,
			deleted = excluded.deleted,
			version = excluded.version`,
		textTemplateRow{
			ID:           t.ID,
			Name:         t.Name,
			TemplateType: t.TemplateType,
			TemplateText: t.Body,
			CreatedAt:    t.CreatedAt.UTC(),
			CreatedBy:    t.CreatedBy,
			Deleted:      t.Deleted,
			Version:      t.Version,
		})
	if err != nil {
		return fmt.Errorf("failed to save text template %s: %w", t.ID, err)
	}
	return nil
}
