package integrity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tripledger/internal/audit"
	"tripledger/internal/auth"
	"tripledger/internal/ledger"
	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
	"tripledger/pkg/services"
)

// DetailInstallments is the SweepReport.Details key for orphaned installments.
const DetailInstallments = "payment_installments"

// Sweeper finds and removes documents left behind by interrupted cascades,
// and repairs financial records that drifted from their trip or installments.
type Sweeper struct {
	store store.Store
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

// NewSweeper creates an orphan sweeper.
func NewSweeper(s store.Store, rec audit.Recorder) *Sweeper {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Sweeper{
		store: s,
		audit: rec,
		log:   logger.WithComponent("sweeper"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Sweep deletes every child document whose trip_id is not a current trip,
// then every installment whose financial record is gone. The set of valid
// trip ids is read fresh on every call. A second sweep with no writes in
// between reports zero.
func (s *Sweeper) Sweep(ctx context.Context, caller models.Caller, opts services.SweepOptions) (*models.SweepReport, error) {
	const op = "Sweep"

	if err := auth.RequireAdmin(caller); err != nil {
		return nil, WrapIntegrityError(op, err, "")
	}

	report := &models.SweepReport{
		Details:   make(map[string]int64, len(models.TripChildCollections)+1),
		DryRun:    opts.DryRun,
		StartedAt: s.now(),
	}
	log := s.log.With().Str("caller_id", caller.ID).Bool("dry_run", opts.DryRun).Logger()
	log.Info().Msg("Starting orphan sweep")

	tripIDs, err := s.store.ListTripIDs(ctx)
	if err != nil {
		return nil, WrapIntegrityError(op, err, "failed to list trips")
	}
	validTrips := make(map[string]struct{}, len(tripIDs))
	for _, id := range tripIDs {
		validTrips[id] = struct{}{}
	}
	report.RemainingTrips = len(tripIDs)

	// Installments are listed before records. An installment is written after
	// its record, so every installment listed here has its record in the scan
	// below unless that record is really gone.
	instRefs, err := s.store.ListInstallmentRefs(ctx)
	if err != nil {
		return nil, WrapIntegrityError(op, err, "failed to list installments")
	}

	// Records that survive this sweep, for the installment pass.
	validRecords := make(map[string]struct{})

	for _, coll := range models.TripChildCollections {
		refs, err := s.store.ListRefs(ctx, coll)
		if err != nil {
			return nil, WrapIntegrityError(op, err, "failed to list "+string(coll))
		}

		var orphans []string
		// Orphans stored without an id can only be matched by their trip id.
		keyless := make(map[string]struct{})
		pending := 0
		for _, ref := range refs {
			if _, ok := validTrips[ref.TripID]; ok {
				if coll == models.CollectionFinancialRecords {
					validRecords[ref.ID] = struct{}{}
				}
				continue
			}
			pending++
			if ref.ID == "" {
				keyless[ref.TripID] = struct{}{}
				continue
			}
			orphans = append(orphans, ref.ID)
		}

		n, err := s.remove(opts.DryRun, pending, func() (int64, error) {
			n, err := s.store.DeleteByID(ctx, coll, orphans)
			if err != nil {
				return n, err
			}
			for tripID := range keyless {
				m, err := s.store.DeleteByTrip(ctx, coll, tripID)
				n += m
				if err != nil {
					return n, err
				}
			}
			return n, nil
		})
		if err != nil {
			return nil, WrapIntegrityError(op, err, "failed to delete orphans from "+string(coll))
		}
		report.Details[string(coll)] = n
		report.TotalDeleted += n
	}

	var orphanInsts []string
	keylessInsts := make(map[string]struct{})
	pending := 0
	for _, ref := range instRefs {
		if _, ok := validRecords[ref.FinancialRecordID]; ok {
			continue
		}
		pending++
		if ref.ID == "" {
			keylessInsts[ref.FinancialRecordID] = struct{}{}
			continue
		}
		orphanInsts = append(orphanInsts, ref.ID)
	}
	n, err := s.remove(opts.DryRun, pending, func() (int64, error) {
		n, err := s.store.DeleteInstallmentsByID(ctx, orphanInsts)
		if err != nil {
			return n, err
		}
		for recordID := range keylessInsts {
			m, err := s.store.DeleteInstallmentsByRecord(ctx, recordID)
			n += m
			if err != nil {
				return n, err
			}
		}
		return n, nil
	})
	if err != nil {
		return nil, WrapIntegrityError(op, err, "failed to delete orphaned installments")
	}
	report.Details[DetailInstallments] = n
	report.TotalDeleted += n

	report.CompletedAt = s.now()
	if !opts.DryRun {
		s.audit.RecordSweep(ctx, caller.ID, report)
	}

	log.Info().
		Int64("total_deleted", report.TotalDeleted).
		Int("remaining_trips", report.RemainingTrips).
		Interface("details", report.Details).
		Dur("duration", report.CompletedAt.Sub(report.StartedAt)).
		Msg("Orphan sweep finished")

	return report, nil
}

// remove runs del for pending orphans, or only counts them on a dry run.
func (s *Sweeper) remove(dryRun bool, pending int, del func() (int64, error)) (int64, error) {
	if pending == 0 {
		return 0, nil
	}
	if dryRun {
		return int64(pending), nil
	}
	return del()
}

// Repair re-applies the status mirror and the derived-field calculation to
// financial records whose trip still exists. Records of a confirmed or draft
// trip that sit in the other of those two states are mirrored again; paid
// and cancelled records are never touched by the mirror. Derived fields are
// rewritten only when they differ from a fresh calculation. Orphaned records
// are left to Sweep.
func (s *Sweeper) Repair(ctx context.Context, caller models.Caller) (*models.RepairReport, error) {
	const op = "Repair"

	if err := auth.RequireAdmin(caller); err != nil {
		return nil, WrapIntegrityError(op, err, "")
	}

	report := &models.RepairReport{StartedAt: s.now()}
	log := s.log.With().Str("caller_id", caller.ID).Logger()
	log.Info().Msg("Starting financial record repair")

	trips, err := s.store.ListTrips(ctx, "")
	if err != nil {
		return nil, WrapIntegrityError(op, err, "failed to list trips")
	}
	byID := make(map[string]*models.Trip, len(trips))
	for _, t := range trips {
		byID[t.ID] = t
	}

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, WrapIntegrityError(op, err, "failed to list financial records")
	}

	for _, rec := range records {
		trip, ok := byID[rec.TripID]
		if !ok {
			continue
		}
		report.RecordsChecked++

		if target, mirrored := ledger.MirroredStatus(trip.Status); mirrored && mirrorable(rec.Status) && rec.Status != target {
			if err := s.store.SetRecordStatus(ctx, rec.ID, target, caller.ID, s.now()); err != nil {
				return nil, WrapIntegrityError(op, err, "failed to mirror status of record "+rec.ID)
			}
			log.Info().
				Str("record_id", rec.ID).
				Str("trip_id", trip.ID).
				Str("from", string(rec.Status)).
				Str("to", string(target)).
				Msg("Financial record status repaired")
			report.StatusRepaired++
		}

		installments, err := s.store.ListInstallments(ctx, rec.ID)
		if err != nil {
			return nil, WrapIntegrityError(op, err, "failed to read installments of record "+rec.ID)
		}
		derived := ledger.Calculate(ledger.InputsFor(rec, installments))
		if derived.Matches(rec) {
			continue
		}
		if err := s.store.SetDerived(ctx, rec.ID, derived.Fields(), s.now()); err != nil {
			return nil, WrapIntegrityError(op, err, "failed to write derived fields of record "+rec.ID)
		}
		log.Info().
			Str("record_id", rec.ID).
			Str("stored_balance_due", rec.BalanceDue.String()).
			Str("balance_due", derived.BalanceDue.String()).
			Msg("Financial record derived fields repaired")
		report.DerivedRepaired++
	}

	report.CompletedAt = s.now()
	s.audit.RecordRepair(ctx, caller.ID, report)

	log.Info().
		Int("records_checked", report.RecordsChecked).
		Int("status_repaired", report.StatusRepaired).
		Int("derived_repaired", report.DerivedRepaired).
		Msg("Financial record repair finished")

	return report, nil
}

func mirrorable(s models.FinancialStatus) bool {
	return s == models.FinancialStatusConfirmed || s == models.FinancialStatusDraft
}
