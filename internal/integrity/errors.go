package integrity

import (
	"errors"
	"fmt"
	"strings"
)

// Common integrity errors
var (
	// ErrTripNotFound is returned when a staff agent targets a trip that does
	// not exist. Administrators may re-run a cascade on a missing trip.
	ErrTripNotFound = errors.New("trip not found")

	// ErrPartialCascade matches any *CascadeError.
	ErrPartialCascade = errors.New("cascade deletion incomplete")
)

// IntegrityError wraps errors with the operation that failed.
type IntegrityError struct {
	// Op is the operation that failed (e.g., "Sweep", "Repair").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("integrity: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("integrity: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *IntegrityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewIntegrityError creates a new IntegrityError.
func NewIntegrityError(op string, err error, details string) *IntegrityError {
	return &IntegrityError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapIntegrityError wraps an error as an IntegrityError if it isn't already one.
func WrapIntegrityError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var integrityErr *IntegrityError
	if errors.As(err, &integrityErr) {
		return err // Already wrapped
	}

	return NewIntegrityError(op, err, details)
}

// StepError is the failure of one cascade step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// CascadeError reports the steps of a cascade deletion that failed. The
// other steps ran; the deletion report returned with it is accurate for
// them. Running the cascade again on the same trip finishes the job.
type CascadeError struct {
	TripID string
	Steps  []*StepError
}

func (e *CascadeError) Error() string {
	names := make([]string, len(e.Steps))
	for i, s := range e.Steps {
		names[i] = s.Step
	}
	return fmt.Sprintf("integrity: cascade delete of trip %s incomplete, failed steps [%s]: %v",
		e.TripID, strings.Join(names, ", "), e.Unwrap())
}

// Unwrap joins the step failures.
func (e *CascadeError) Unwrap() error {
	errs := make([]error, len(e.Steps))
	for i, s := range e.Steps {
		errs[i] = s
	}
	return errors.Join(errs...)
}

// Is matches ErrPartialCascade.
func (e *CascadeError) Is(target error) bool {
	return target == ErrPartialCascade
}
