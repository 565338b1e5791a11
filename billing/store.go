package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/calendar"
)

type BillingPeriodRepository interface {
	// LatestBillingPeriodEnd returns the end date of the latest non-deleted
	// period, nil if there is none.
	LatestBillingPeriodEnd(ctx context.Context) (*calendar.Date, error)

	// AllBillingPeriods returns non-deleted periods ordered by start date,
	// without their sales person values.
	AllBillingPeriods(ctx context.Context) ([]BillingPeriod, error)

	// FindBillingPeriod returns the period including its values; nil if
	// missing or deleted.
	FindBillingPeriod(ctx context.Context, id uuid.UUID) (*BillingPeriod, error)

	CreateBillingPeriod(ctx context.Context, bp BillingPeriod) error
	DeleteBillingPeriod(ctx context.Context, id uuid.UUID, at time.Time, by string) error
	DeleteAllBillingPeriods(ctx context.Context, at time.Time, by string) error
}

type TextTemplateRepository interface {
	FindTextTemplate(ctx context.Context, id uuid.UUID) (*TextTemplate, error)
	SaveTextTemplate(ctx context.Context, t TextTemplate) error
}

// Repositories is what the snapshotter needs from one transaction.
type Repositories interface {
	accounting.SalesPersonRepository
	BillingPeriodRepository
	TextTemplateRepository
}
