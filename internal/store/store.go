// Package store defines the document-store contracts the ledger and integrity
// engines run against.
//
// The backing store serializes single-document writes but offers no
// cross-document transactions and no foreign keys. Every child collection
// refers to its parent through a loose id field; keeping those references
// valid is the job of the integrity package, not of the store.
//
// Implementations:
//   - memory: process-local maps, used by tests and STORE_DRIVER=memory
//   - mongostore: MongoDB collections
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tripledger/pkg/models"
)

// ErrNotFound is returned when a document addressed by id does not exist.
var ErrNotFound = errors.New("document not found")

// TripStore owns the trips collection.
type TripStore interface {
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	InsertTrip(ctx context.Context, trip *models.Trip) error
	// UpdateTripStatus writes status, updated_at and updated_by.
	UpdateTripStatus(ctx context.Context, id string, status models.TripStatus, actorID string, at time.Time) error
	DeleteTrip(ctx context.Context, id string) (int64, error)
	// ListTripIDs returns the id of every trip currently stored.
	ListTripIDs(ctx context.Context) ([]string, error)
	// ListTrips returns trips, optionally restricted to one agent.
	ListTrips(ctx context.Context, agentID string) ([]*models.Trip, error)
}

// FinanceStore owns financial records and their payment installments.
type FinanceStore interface {
	InsertRecord(ctx context.Context, rec *models.FinancialRecord) error
	GetRecord(ctx context.Context, id string) (*models.FinancialRecord, error)
	// ListRecordsByTrip returns every record for a trip, oldest first.
	// More than one is a data error the callers try to prevent.
	ListRecordsByTrip(ctx context.Context, tripID string) ([]*models.FinancialRecord, error)
	// ListRecords returns every financial record.
	ListRecords(ctx context.Context) ([]*models.FinancialRecord, error)
	ReplaceRecord(ctx context.Context, rec *models.FinancialRecord) error
	// SetDerived writes only the four derived fields of a record.
	SetDerived(ctx context.Context, id string, d DerivedFields, at time.Time) error
	// UpdateRecordStatusByTrip sets the status of every record of a trip and
	// returns how many records matched.
	UpdateRecordStatusByTrip(ctx context.Context, tripID string, status models.FinancialStatus, actorID string, at time.Time) (int64, error)
	// SetRecordStatus sets the status of a single record.
	SetRecordStatus(ctx context.Context, id string, status models.FinancialStatus, actorID string, at time.Time) error

	InsertInstallment(ctx context.Context, inst *models.PaymentInstallment) error
	GetInstallment(ctx context.Context, id string) (*models.PaymentInstallment, error)
	ListInstallments(ctx context.Context, recordID string) ([]*models.PaymentInstallment, error)
	DeleteInstallment(ctx context.Context, id string) (int64, error)
	DeleteInstallmentsByRecord(ctx context.Context, recordID string) (int64, error)
	// ListInstallmentRefs returns id and financial record id of every installment.
	ListInstallmentRefs(ctx context.Context) ([]InstallmentRef, error)
	DeleteInstallmentsByID(ctx context.Context, ids []string) (int64, error)
}

// ChildStore addresses every collection keyed by trip_id generically. The
// financial records collection is one of them.
type ChildStore interface {
	DeleteByTrip(ctx context.Context, coll models.ChildCollection, tripID string) (int64, error)
	ListRefs(ctx context.Context, coll models.ChildCollection) ([]models.ChildRef, error)
	DeleteByID(ctx context.Context, coll models.ChildCollection, ids []string) (int64, error)
}

// Store is the full set of collections.
type Store interface {
	TripStore
	FinanceStore
	ChildStore
}

// DerivedFields is the stored subset of the calculator output.
type DerivedFields struct {
	GrossCommission    decimal.Decimal
	SupplierCommission decimal.Decimal
	AgentCommission    decimal.Decimal
	BalanceDue         decimal.Decimal
}

// InstallmentRef is the projection of an installment used by the sweep.
type InstallmentRef struct {
	ID                string
	FinancialRecordID string
}
