// Package ledger keeps trip financial records consistent with their inputs.
//
// The four derived figures of a record (gross, supplier and agent commission,
// balance due) are never patched incrementally. Every record write and every
// installment add or remove re-reads the current installments and runs
// Calculate over the full set before anything is persisted.
//
// The store offers no cross-document transactions. Two concurrent installment
// writes on the same record may each recompute from a slightly stale total;
// the next write to that record heals it, and Repair in the integrity package
// catches anything left behind.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tripledger/internal/auth"
	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
	"tripledger/pkg/services"
)

// Service implements services.LedgerService.
type Service struct {
	trips   store.TripStore
	finance store.FinanceStore
	log     zerolog.Logger
	now     func() time.Time
}

var _ services.LedgerService = (*Service)(nil)

// NewService creates a ledger service over the given collections.
func NewService(trips store.TripStore, finance store.FinanceStore) *Service {
	return &Service{
		trips:   trips,
		finance: finance,
		log:     logger.WithComponent("ledger"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateRecord implements services.LedgerService.
func (s *Service) CreateRecord(ctx context.Context, caller models.Caller, tripID string, in services.RecordInput) (*models.FinancialRecord, error) {
	const op = "CreateRecord"

	trip, err := s.getTrip(ctx, tripID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "trip "+tripID)
	}
	if err := auth.CanManageTrip(caller, trip); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}

	// Lookup-then-insert: the store has no unique index on trip_id, so two
	// concurrent creates can still both pass this check.
	existing, err := s.finance.ListRecordsByTrip(ctx, tripID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "failed to look up existing records")
	}
	if len(existing) > 0 {
		return nil, NewLedgerError(op, ErrDuplicateRecord, "trip "+tripID+" already has record "+existing[0].ID)
	}

	now := s.now()
	rec := &models.FinancialRecord{
		ID:                  uuid.NewString(),
		TripID:              tripID,
		PracticeNumber:      in.PracticeNumber,
		BookingNumber:       in.BookingNumber,
		GrossAmount:         in.GrossAmount,
		NetAmount:           in.NetAmount,
		Discount:            in.Discount,
		ConfirmationDeposit: in.ConfirmationDeposit,
		PracticeConfirmDate: in.PracticeConfirmDate,
		ClientDepartureDate: in.ClientDepartureDate,
		Status:              models.FinancialStatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
		UpdatedBy:           caller.ID,
	}
	Calculate(InputsFor(rec, nil)).Apply(rec)

	if err := s.finance.InsertRecord(ctx, rec); err != nil {
		return nil, WrapLedgerError(op, err, "failed to insert record")
	}

	s.log.Info().
		Str("trip_id", tripID).
		Str("record_id", rec.ID).
		Str("caller_id", caller.ID).
		Str("balance_due", rec.BalanceDue.String()).
		Msg("Financial record created")

	return rec, nil
}

// UpdateRecord implements services.LedgerService.
func (s *Service) UpdateRecord(ctx context.Context, caller models.Caller, recordID string, patch services.RecordPatch) (*models.FinancialRecord, error) {
	const op = "UpdateRecord"

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "record "+recordID)
	}
	if err := s.authorizeRecord(ctx, caller, rec); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, NewLedgerError(op, ErrInvalidStatus, string(*patch.Status))
	}

	applyPatch(rec, patch)

	installments, err := s.finance.ListInstallments(ctx, rec.ID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "failed to read installments")
	}
	Calculate(InputsFor(rec, installments)).Apply(rec)
	rec.UpdatedAt = s.now()
	rec.UpdatedBy = caller.ID

	if err := s.finance.ReplaceRecord(ctx, rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrRecordNotFound
		}
		return nil, WrapLedgerError(op, err, "failed to write record "+recordID)
	}

	s.log.Info().
		Str("record_id", rec.ID).
		Str("status", string(rec.Status)).
		Str("balance_due", rec.BalanceDue.String()).
		Int("installments", len(installments)).
		Msg("Financial record updated")

	return rec, nil
}

func applyPatch(rec *models.FinancialRecord, patch services.RecordPatch) {
	if patch.PracticeNumber != nil {
		rec.PracticeNumber = *patch.PracticeNumber
	}
	if patch.BookingNumber != nil {
		rec.BookingNumber = *patch.BookingNumber
	}
	if patch.GrossAmount != nil {
		rec.GrossAmount = *patch.GrossAmount
	}
	if patch.NetAmount != nil {
		rec.NetAmount = *patch.NetAmount
	}
	if patch.Discount != nil {
		rec.Discount = *patch.Discount
	}
	if patch.ConfirmationDeposit != nil {
		rec.ConfirmationDeposit = *patch.ConfirmationDeposit
	}
	if patch.PracticeConfirmDate != nil {
		rec.PracticeConfirmDate = *patch.PracticeConfirmDate
	}
	if patch.ClientDepartureDate != nil {
		rec.ClientDepartureDate = *patch.ClientDepartureDate
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
}

// AddInstallment implements services.LedgerService.
func (s *Service) AddInstallment(ctx context.Context, caller models.Caller, recordID string, in services.InstallmentInput) (*models.PaymentInstallment, error) {
	const op = "AddInstallment"

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "record "+recordID)
	}
	if err := s.authorizeRecord(ctx, caller, rec); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}

	paymentType := in.PaymentType
	if paymentType == "" {
		paymentType = models.PaymentTypeInstallment
	}
	if !paymentType.Valid() {
		return nil, NewLedgerError(op, ErrInvalidPaymentType, string(paymentType))
	}

	now := s.now()
	paymentDate := in.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}

	inst := &models.PaymentInstallment{
		ID:                uuid.NewString(),
		FinancialRecordID: rec.ID,
		Amount:            in.Amount,
		PaymentDate:       paymentDate,
		PaymentType:       paymentType,
		Notes:             in.Notes,
		CreatedAt:         now,
	}
	if err := s.finance.InsertInstallment(ctx, inst); err != nil {
		return nil, WrapLedgerError(op, err, "failed to insert installment")
	}

	updated, err := s.Recompute(ctx, rec.ID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "installment stored but recompute failed")
	}

	s.log.Info().
		Str("record_id", rec.ID).
		Str("installment_id", inst.ID).
		Str("amount", inst.Amount.String()).
		Str("balance_due", updated.BalanceDue.String()).
		Msg("Payment installment added")

	return inst, nil
}

// RemoveInstallment implements services.LedgerService.
func (s *Service) RemoveInstallment(ctx context.Context, caller models.Caller, installmentID string) (*models.PaymentInstallment, error) {
	const op = "RemoveInstallment"

	inst, err := s.finance.GetInstallment(ctx, installmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrInstallmentNotFound
		}
		return nil, WrapLedgerError(op, err, "installment "+installmentID)
	}

	rec, err := s.getRecord(ctx, inst.FinancialRecordID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		// Installment of a vanished record: only staff checks apply.
		if err := auth.RequireStaff(caller); err != nil {
			return nil, WrapLedgerError(op, err, "")
		}
		rec = nil
	case err != nil:
		return nil, WrapLedgerError(op, err, "record "+inst.FinancialRecordID)
	default:
		if err := s.authorizeRecord(ctx, caller, rec); err != nil {
			return nil, WrapLedgerError(op, err, "")
		}
	}

	if _, err := s.finance.DeleteInstallment(ctx, installmentID); err != nil {
		return nil, WrapLedgerError(op, err, "failed to delete installment")
	}

	if rec == nil {
		s.log.Warn().
			Str("installment_id", installmentID).
			Str("record_id", inst.FinancialRecordID).
			Msg("Removed installment of a missing financial record, nothing to recompute")
		return inst, nil
	}

	updated, err := s.Recompute(ctx, rec.ID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "installment removed but recompute failed")
	}

	s.log.Info().
		Str("record_id", rec.ID).
		Str("installment_id", installmentID).
		Str("balance_due", updated.BalanceDue.String()).
		Msg("Payment installment removed")

	return inst, nil
}

// Recompute re-reads a record and its installments, runs the calculator and
// writes only the derived fields back.
func (s *Service) Recompute(ctx context.Context, recordID string) (*models.FinancialRecord, error) {
	const op = "Recompute"

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "record "+recordID)
	}
	installments, err := s.finance.ListInstallments(ctx, recordID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "failed to read installments")
	}

	derived := Calculate(InputsFor(rec, installments))
	now := s.now()
	if err := s.finance.SetDerived(ctx, recordID, derived.Fields(), now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrRecordNotFound
		}
		return nil, WrapLedgerError(op, err, "failed to write derived fields")
	}

	derived.Apply(rec)
	rec.UpdatedAt = now
	return rec, nil
}

// GetSheet implements services.LedgerService. The derived figures are
// recomputed from the current installments at read time.
func (s *Service) GetSheet(ctx context.Context, caller models.Caller, tripID string) (*models.FinancialSheet, error) {
	const op = "GetSheet"

	if err := auth.RequireStaff(caller); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}

	records, err := s.finance.ListRecordsByTrip(ctx, tripID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "failed to look up record")
	}
	if len(records) == 0 {
		return nil, NewLedgerError(op, ErrRecordNotFound, "trip "+tripID)
	}
	if len(records) > 1 {
		s.log.Warn().
			Str("trip_id", tripID).
			Int("records", len(records)).
			Msg("Trip has more than one financial record, using the oldest")
	}
	rec := records[0]

	if err := s.authorizeRecord(ctx, caller, rec); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}

	installments, err := s.finance.ListInstallments(ctx, rec.ID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "failed to read installments")
	}
	derived := Calculate(InputsFor(rec, installments))
	derived.Apply(rec)

	return &models.FinancialSheet{
		Record:       rec,
		Installments: installments,
		TotalPaid:    derived.TotalPaid,
	}, nil
}

// ListInstallments implements services.LedgerService.
func (s *Service) ListInstallments(ctx context.Context, caller models.Caller, recordID string) ([]*models.PaymentInstallment, error) {
	const op = "ListInstallments"

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "record "+recordID)
	}
	if err := s.authorizeRecord(ctx, caller, rec); err != nil {
		return nil, WrapLedgerError(op, err, "")
	}

	installments, err := s.finance.ListInstallments(ctx, rec.ID)
	if err != nil {
		return nil, WrapLedgerError(op, err, "failed to read installments")
	}
	return installments, nil
}

// authorizeRecord applies the trip ownership rule through the record's trip.
// A record whose trip is gone can only be touched by an administrator.
func (s *Service) authorizeRecord(ctx context.Context, caller models.Caller, rec *models.FinancialRecord) error {
	if err := auth.RequireStaff(caller); err != nil {
		return err
	}
	if caller.Role == models.RoleAdmin {
		return nil
	}
	trip, err := s.getTrip(ctx, rec.TripID)
	if errors.Is(err, ErrTripNotFound) {
		return auth.ErrForbidden
	}
	if err != nil {
		return err
	}
	return auth.CanManageTrip(caller, trip)
}

func (s *Service) getTrip(ctx context.Context, id string) (*models.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTripNotFound
	}
	return trip, err
}

func (s *Service) getRecord(ctx context.Context, id string) (*models.FinancialRecord, error) {
	rec, err := s.finance.GetRecord(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}
