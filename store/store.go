/*
Package store defines the transaction boundary shared by the storage
implementations.

Every REST request and every scheduler run opens exactly one transaction
and builds its engine components against the Tx it is handed:

  err := st.WithTx(ctx, func(tx store.Tx) error {
      reporter := accounting.NewReporter(tx, authz, log)
      ...
  })

The function's error decides the outcome: nil commits, anything else
rolls back. The engine itself never commits.

IMPLEMENTATIONS:
  - store/sqlite: sqlx over go-sqlite3 (production)
  - store/memory: snapshot + restore (tests, demos)
*/
package store

import (
	"context"

	"github.com/warp/workhours-engine/accounting"
	"github.com/warp/workhours-engine/billing"
)

// Tx is a transaction-bound view of every repository.
type Tx interface {
	accounting.Repositories
	accounting.Writer
	billing.BillingPeriodRepository
	billing.TextTemplateRepository
}

// TxStore opens transactions.
type TxStore interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
