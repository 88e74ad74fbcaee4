// Package auth holds the authorization rules applied to an already
// authenticated caller, and the token verification used by the HTTP boundary.
// Issuing tokens is the job of the identity service, not of this package.
package auth

import (
	"context"
	"errors"
	"fmt"

	"tripledger/pkg/models"
)

var (
	// ErrForbidden is returned when the caller's role or ownership does not
	// allow the requested operation.
	ErrForbidden = errors.New("not authorized")

	// ErrUnauthenticated is returned when no valid caller identity is present.
	ErrUnauthenticated = errors.New("authentication required")
)

// RequireStaff allows administrators and staff agents.
func RequireStaff(c models.Caller) error {
	if !c.IsStaff() {
		return fmt.Errorf("%w: role %q cannot manage financial data", ErrForbidden, c.Role)
	}
	return nil
}

// RequireAdmin allows administrators only.
func RequireAdmin(c models.Caller) error {
	if c.Role != models.RoleAdmin {
		return fmt.Errorf("%w: administrator role required", ErrForbidden)
	}
	return nil
}

// CanManageTrip allows administrators on every trip and agents on the trips
// assigned to them.
func CanManageTrip(c models.Caller, trip *models.Trip) error {
	if err := RequireStaff(c); err != nil {
		return err
	}
	if c.Role == models.RoleAgent && trip.AgentID != c.ID {
		return fmt.Errorf("%w: trip %s is assigned to another agent", ErrForbidden, trip.ID)
	}
	return nil
}

type callerKey struct{}

// WithCaller stores the caller in ctx.
func WithCaller(ctx context.Context, c models.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller stored in ctx.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(models.Caller)
	return c, ok
}
