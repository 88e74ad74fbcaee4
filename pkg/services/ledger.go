package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tripledger/pkg/models"
)

// LedgerService manages financial records and their payment installments.
// Every write re-runs the derived-field calculator over the full, freshly
// read installment set.
type LedgerService interface {
	// CreateRecord creates the financial record of a trip.
	CreateRecord(ctx context.Context, caller models.Caller, tripID string, in RecordInput) (*models.FinancialRecord, error)

	// UpdateRecord applies a partial update and recomputes the derived fields.
	UpdateRecord(ctx context.Context, caller models.Caller, recordID string, patch RecordPatch) (*models.FinancialRecord, error)

	// AddInstallment registers a payment and recomputes the parent record.
	AddInstallment(ctx context.Context, caller models.Caller, recordID string, in InstallmentInput) (*models.PaymentInstallment, error)

	// RemoveInstallment deletes a payment and recomputes the parent record.
	// It returns the removed installment.
	RemoveInstallment(ctx context.Context, caller models.Caller, installmentID string) (*models.PaymentInstallment, error)

	// GetSheet returns the financial record of a trip with its installments.
	GetSheet(ctx context.Context, caller models.Caller, tripID string) (*models.FinancialSheet, error)

	// ListInstallments returns the installments of a record.
	ListInstallments(ctx context.Context, caller models.Caller, recordID string) ([]*models.PaymentInstallment, error)
}

// LifecycleService changes trip status and mirrors the change onto the
// financial record.
type LifecycleService interface {
	ChangeStatus(ctx context.Context, caller models.Caller, tripID string, status models.TripStatus) (*models.StatusChange, error)
}

// IntegrityService keeps child collections consistent with the trips they
// reference.
type IntegrityService interface {
	// DeleteTrip removes a trip and every document that depends on it.
	DeleteTrip(ctx context.Context, caller models.Caller, tripID string) (*models.DeletionReport, error)

	// Sweep deletes child documents whose parent no longer exists.
	Sweep(ctx context.Context, caller models.Caller, opts SweepOptions) (*models.SweepReport, error)

	// Repair re-applies status mirroring and derived-field recomputation to
	// records that drifted.
	Repair(ctx context.Context, caller models.Caller) (*models.RepairReport, error)
}

// RecordInput carries the raw fields of a new financial record.
type RecordInput struct {
	PracticeNumber      string          `json:"practice_number"`
	BookingNumber       string          `json:"booking_number"`
	GrossAmount         decimal.Decimal `json:"gross_amount"`
	NetAmount           decimal.Decimal `json:"net_amount"`
	Discount            decimal.Decimal `json:"discount"`
	ConfirmationDeposit decimal.Decimal `json:"confirmation_deposit"`
	PracticeConfirmDate time.Time       `json:"practice_confirm_date"`
	ClientDepartureDate time.Time       `json:"client_departure_date"`
}

// RecordPatch is a partial update; nil fields are left unchanged.
type RecordPatch struct {
	PracticeNumber      *string                 `json:"practice_number,omitempty"`
	BookingNumber       *string                 `json:"booking_number,omitempty"`
	GrossAmount         *decimal.Decimal        `json:"gross_amount,omitempty"`
	NetAmount           *decimal.Decimal        `json:"net_amount,omitempty"`
	Discount            *decimal.Decimal        `json:"discount,omitempty"`
	ConfirmationDeposit *decimal.Decimal        `json:"confirmation_deposit,omitempty"`
	PracticeConfirmDate *time.Time              `json:"practice_confirm_date,omitempty"`
	ClientDepartureDate *time.Time              `json:"client_departure_date,omitempty"`
	Status              *models.FinancialStatus `json:"status,omitempty"`
}

// InstallmentInput carries a new payment installment.
type InstallmentInput struct {
	Amount      decimal.Decimal    `json:"amount"`
	PaymentDate time.Time          `json:"payment_date"`
	PaymentType models.PaymentType `json:"payment_type"`
	Notes       string             `json:"notes"`
}

// SweepOptions tunes an orphan sweep.
type SweepOptions struct {
	// DryRun counts orphans without deleting them.
	DryRun bool
}
