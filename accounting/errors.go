/*
errors.go - Error taxonomy of the accounting engine

ERROR CATEGORIES:
  1. Forbidden   - caller is neither HR nor the employee in question
  2. Not found   - unknown sales person, billing period or template (carries the id)
  3. Calculation - invalid ISO week/weekday combination and similar arithmetic failures
  4. Storage     - repository failures, wrapped once and never retried
  5. Invalid input - malformed request parameters (end before start, ...)

USAGE:
  Callers distinguish kinds with errors.Is on the sentinels or with the
  Is* helpers, never by inspecting error text:

    if accounting.IsForbidden(err) {
        // 403
    }

Every failure aborts the computation in progress. There is no partial
report and no skip-bad-record mode.
*/
package accounting

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrCalculation  = errors.New("calculation failed")
	ErrStorage      = errors.New("storage failure")
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateBooking is returned by Writer.SaveBooking when the sales
	// person is already booked into the slot that week.
	ErrDuplicateBooking = errors.New("duplicate booking")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing entity and its id.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CalculationError wraps calendar arithmetic failures.
type CalculationError struct {
	Op  string
	Err error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CalculationError) Unwrap() []error { return []error{ErrCalculation, e.Err} }

// StorageError wraps a repository failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// InputError reports an invalid parameter.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// WrapStorage wraps a repository error unless it already carries an engine kind.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrCalculation) ||
		errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDuplicateBooking) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func calculationErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CalculationError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsForbidden(err error) bool   { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsCalculation(err error) bool { return errors.Is(err, ErrCalculation) }

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDuplicateBooking)
}
