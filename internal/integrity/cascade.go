// Package integrity keeps the child collections of a trip consistent with
// the trips collection. The store has no foreign keys, so every document
// that refers to a trip is removed here: explicitly when a trip is deleted
// (Cascade), and after the fact for anything a crash or a manual edit left
// behind (Sweeper).
package integrity

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"tripledger/internal/audit"
	"tripledger/internal/auth"
	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
)

// Cascade step names, as reported in DeletionReport.FailedSteps.
const (
	StepResolveRecords = "resolve_financial_records"
	StepInstallments   = "payment_installments"
	StepTrip           = "trips"
)

// Cascade deletes a trip together with every document depending on it.
type Cascade struct {
	store store.Store
	audit audit.Recorder
	log   zerolog.Logger
}

// NewCascade creates a cascade manager.
func NewCascade(s store.Store, rec audit.Recorder) *Cascade {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Cascade{
		store: s,
		audit: rec,
		log:   logger.WithComponent("cascade"),
	}
}

// DeleteTrip removes the installments of the trip's financial records, the
// records, itineraries, cruise info, client notes, client photos and finally
// the trip.
//
// Steps are independent: a failing step is recorded and the remaining ones
// still run, so the report is returned together with a *CascadeError. The
// operation is idempotent; a second run on the same id deletes nothing.
func (c *Cascade) DeleteTrip(ctx context.Context, caller models.Caller, tripID string) (*models.DeletionReport, error) {
	const op = "DeleteTrip"

	if err := auth.RequireStaff(caller); err != nil {
		return nil, WrapIntegrityError(op, err, "")
	}

	trip, err := c.store.GetTrip(ctx, tripID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if caller.Role != models.RoleAdmin {
			return nil, NewIntegrityError(op, ErrTripNotFound, "trip "+tripID)
		}
		c.log.Warn().
			Str("trip_id", tripID).
			Str("caller_id", caller.ID).
			Msg("Trip already gone, cleaning up leftover documents")
	case err != nil:
		return nil, WrapIntegrityError(op, err, "trip "+tripID)
	default:
		if err := auth.CanManageTrip(caller, trip); err != nil {
			return nil, WrapIntegrityError(op, err, "")
		}
	}

	log := c.log.With().Str("trip_id", tripID).Str("caller_id", caller.ID).Logger()
	log.Info().Msg("Starting cascade delete")

	report := &models.DeletionReport{TripID: tripID}
	var failed []*StepError
	fail := func(step string, err error) {
		log.Error().Err(err).Str("step", step).Msg("Cascade step failed, continuing")
		failed = append(failed, &StepError{Step: step, Err: err})
		report.FailedSteps = append(report.FailedSteps, step)
	}

	// Installments reference records, not trips: resolve the records first.
	records, err := c.store.ListRecordsByTrip(ctx, tripID)
	if err != nil {
		fail(StepResolveRecords, err)
	}
	var instErr error
	for _, rec := range records {
		n, err := c.store.DeleteInstallmentsByRecord(ctx, rec.ID)
		report.PaymentInstallments += n
		if err != nil && instErr == nil {
			instErr = err
		}
	}
	if instErr != nil {
		fail(StepInstallments, instErr)
	}

	counters := map[models.ChildCollection]*int64{
		models.CollectionFinancialRecords: &report.FinancialRecords,
		models.CollectionItineraries:      &report.Itineraries,
		models.CollectionCruiseInfo:       &report.CruiseInfo,
		models.CollectionClientNotes:      &report.ClientNotes,
		models.CollectionClientPhotos:     &report.ClientPhotos,
	}
	for _, coll := range models.TripChildCollections {
		n, err := c.store.DeleteByTrip(ctx, coll, tripID)
		*counters[coll] = n
		if err != nil {
			fail(string(coll), err)
		}
	}

	n, err := c.store.DeleteTrip(ctx, tripID)
	report.Trip = n
	if err != nil {
		fail(StepTrip, err)
	}

	c.audit.RecordDeletion(ctx, caller.ID, report)

	level := zerolog.InfoLevel
	if len(failed) > 0 {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Strs("failed_steps", report.FailedSteps).
		Int64("trip", report.Trip).
		Int64("financial_records", report.FinancialRecords).
		Int64("payment_installments", report.PaymentInstallments).
		Int64("itineraries", report.Itineraries).
		Int64("cruise_info", report.CruiseInfo).
		Int64("client_notes", report.ClientNotes).
		Int64("client_photos", report.ClientPhotos).
		Msg("Cascade delete finished")

	if len(failed) > 0 {
		return report, &CascadeError{TripID: tripID, Steps: failed}
	}
	return report, nil
}
