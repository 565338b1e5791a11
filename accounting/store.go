/*
store.go - Repositories consumed by the accounting engine

READ SIDE:
  The engine only reads. Each collaborator is a narrow interface so a
  component depends on exactly what it queries:

    SalesPersonRepository  sales persons (non-deleted)
    WorkDetailsRepository  contracts per sales person or per week
    ShiftplanRepository    booked hours aggregated per day
    ExtraHoursRepository   extra-hours entries per sales person or week
    CarryoverRepository    year-end carryover per sales person and year

  Lookups of a single entity return (nil, nil) when it does not exist; the
  engine turns that into a NotFoundError.

WRITE SIDE:
  Writer is used by the REST layer and demo scenarios to maintain the
  inputs. Report computations never write; the carryover updater is the
  only engine component that does.

TRANSACTIONS:
  Implementations are bound to one transaction by the caller
  (see store.TxStore). The engine never commits or rolls back.

IMPLEMENTATIONS:
  - store/sqlite: sqlx over go-sqlite3
  - store/memory: in-memory, for tests and demos
*/
package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warp/workhours-engine/calendar"
)

type SalesPersonRepository interface {
	AllSalesPersons(ctx context.Context) ([]SalesPerson, error)
	FindSalesPerson(ctx context.Context, id uuid.UUID) (*SalesPerson, error)
}

type WorkDetailsRepository interface {
	FindWorkDetailsBySalesPerson(ctx context.Context, salesPersonID uuid.UUID) ([]WorkDetails, error)

	// FindWorkDetailsForWeek returns the contracts of all sales persons
	// covering the week.
	FindWorkDetailsForWeek(ctx context.Context, week calendar.Week) ([]WorkDetails, error)
}

type ShiftplanRepository interface {
	// FindShiftplanHours returns booked hours of one sales person in the
	// inclusive week range.
	FindShiftplanHours(ctx context.Context, salesPersonID uuid.UUID, from, to calendar.Week) ([]ShiftplanHoursEntry, error)

	FindShiftplanHoursForWeek(ctx context.Context, week calendar.Week) ([]ShiftplanHoursEntry, error)
}

type ExtraHoursRepository interface {
	// FindExtraHoursForYear returns entries dated in the calendar year up to
	// the end of the (virtual) week untilWeek. See YearToWeekRange.
	FindExtraHoursForYear(ctx context.Context, salesPersonID uuid.UUID, year, untilWeek int) ([]ExtraHours, error)

	// FindExtraHours returns entries dated within the range.
	FindExtraHours(ctx context.Context, salesPersonID uuid.UUID, r calendar.Range) ([]ExtraHours, error)

	FindExtraHoursForWeek(ctx context.Context, week calendar.Week) ([]ExtraHours, error)
}

type CarryoverRepository interface {
	// FindCarryover returns (nil, nil) when no carryover was recorded.
	FindCarryover(ctx context.Context, salesPersonID uuid.UUID, year int) (*Carryover, error)
}

// Repositories bundles the read side.
type Repositories interface {
	SalesPersonRepository
	WorkDetailsRepository
	ShiftplanRepository
	ExtraHoursRepository
	CarryoverRepository
}

// Writer maintains the engine inputs.
type Writer interface {
	SaveSalesPerson(ctx context.Context, sp SalesPerson) error
	SaveWorkDetails(ctx context.Context, wd WorkDetails) error
	SaveExtraHours(ctx context.Context, eh ExtraHours) error
	SaveCustomExtraHours(ctx context.Context, def CustomExtraHoursDefinition) error
	FindCustomExtraHours(ctx context.Context, id uuid.UUID) (*CustomExtraHoursDefinition, error)
	SaveSlot(ctx context.Context, slot Slot) error
	FindSlot(ctx context.Context, id uuid.UUID) (*Slot, error)

	// SaveBooking fails when a non-deleted booking exists for the same
	// (sales person, slot, week, year).
	SaveBooking(ctx context.Context, b Booking) error
	DeleteBooking(ctx context.Context, id uuid.UUID, at time.Time) error

	// SaveCarryover replaces the carryover of (sales person, year).
	SaveCarryover(ctx context.Context, c Carryover) error
}

// YearToWeekRange is the date span a year-scoped query covers: calendar
// year `year` up to the Sunday of the resolved virtual week untilWeek.
func YearToWeekRange(year, untilWeek int) (calendar.Range, error) {
	span, err := calendar.ResolveVirtualWeek(untilWeek, year).Span()
	if err != nil {
		return calendar.Range{}, calculationErr("year to week range", err)
	}
	return calendar.YearRange(year).Clip(calendar.Range{From: calendar.FirstDayOfYear(year), To: span.To}), nil
}
