package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tripledger/internal/auth"
	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
	"tripledger/pkg/services"
)

// Lifecycle owns trip status changes and triggers the financial status mirror.
type Lifecycle struct {
	trips  store.TripStore
	mirror *Mirror
	log    zerolog.Logger
	now    func() time.Time
}

var _ services.LifecycleService = (*Lifecycle)(nil)

// NewLifecycle creates the trip status owner.
func NewLifecycle(trips store.TripStore, mirror *Mirror) *Lifecycle {
	return &Lifecycle{
		trips:  trips,
		mirror: mirror,
		log:    logger.WithComponent("lifecycle"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ChangeStatus validates and writes a trip status, then mirrors it onto the
// financial record. The trip write is authoritative: a failed mirror is
// logged and reported in the returned confirmation, the call still succeeds.
func (l *Lifecycle) ChangeStatus(ctx context.Context, caller models.Caller, tripID string, status models.TripStatus) (*models.StatusChange, error) {
	const op = "ChangeStatus"

	trip, err := l.trips.GetTrip(ctx, tripID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewLedgerError(op, ErrTripNotFound, "trip "+tripID)
	}
	if err != nil {
		return nil, WrapLedgerError(op, err, "trip "+tripID)
	}
	if err := auth.CanManageTrip(caller, trip); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}
	if !status.Valid() {
		return nil, NewLedgerError(op, ErrInvalidStatus, fmt.Sprintf("%q is not a trip status", status))
	}
	if status.RequiresCompleteTrip() && !trip.IsComplete() {
		return nil, NewLedgerError(op, ErrTripIncomplete, "trip "+tripID)
	}

	if err := l.trips.UpdateTripStatus(ctx, tripID, status, caller.ID, l.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrTripNotFound
		}
		return nil, WrapLedgerError(op, err, "failed to write trip status")
	}

	change := &models.StatusChange{
		TripID:  tripID,
		Status:  status,
		Message: fmt.Sprintf("Trip status updated to %s", status),
	}

	res, err := l.mirror.Sync(ctx, tripID, status, caller.ID)
	if err != nil {
		l.log.Error().
			Err(err).
			Str("trip_id", tripID).
			Str("status", string(status)).
			Msg("Trip status written but financial record mirror failed")
		change.MirrorError = err.Error()
	}
	change.MirroredRecords = res.RecordsUpdated

	l.log.Info().
		Str("trip_id", tripID).
		Str("from", string(trip.Status)).
		Str("to", string(status)).
		Str("caller_id", caller.ID).
		Int64("mirrored_records", res.RecordsUpdated).
		Msg("Trip status changed")

	return change, nil
}
