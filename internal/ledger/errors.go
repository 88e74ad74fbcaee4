package ledger

import (
	"errors"
	"fmt"
)

// Common ledger errors
var (
	// ErrTripNotFound is returned when an operation references a trip id that
	// does not exist.
	ErrTripNotFound = errors.New("trip not found")

	// ErrRecordNotFound is returned when a financial record id does not exist.
	// The ledger never creates a missing parent record implicitly.
	ErrRecordNotFound = errors.New("financial record not found")

	// ErrInstallmentNotFound is returned when a payment installment id does not exist.
	ErrInstallmentNotFound = errors.New("payment installment not found")

	// ErrDuplicateRecord is returned when a financial record already exists for a trip.
	ErrDuplicateRecord = errors.New("financial record already exists for trip")

	// ErrInvalidStatus is returned for a status outside the trip or financial enum.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPaymentType is returned for an unknown installment payment type.
	ErrInvalidPaymentType = errors.New("invalid payment type")

	// ErrTripIncomplete is returned when a trip without title or client is
	// moved to active or confirmed.
	ErrTripIncomplete = errors.New("trip must have title and client to be activated/confirmed")
)

// LedgerError wraps errors with the operation that failed.
type LedgerError struct {
	// Op is the operation that failed (e.g., "CreateRecord", "AddInstallment").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ledger: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *LedgerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewLedgerError creates a new LedgerError with the specified operation and underlying error.
func NewLedgerError(op string, err error, details string) *LedgerError {
	return &LedgerError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapLedgerError wraps an error as a LedgerError if it isn't already one.
func WrapLedgerError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return err // Already wrapped
	}

	return NewLedgerError(op, err, details)
}
