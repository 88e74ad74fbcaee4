package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialStatus is the commercial status of a financial record. It is a
// superset of the trip statuses that get mirrored onto it.
type FinancialStatus string

const (
	FinancialStatusDraft     FinancialStatus = "draft"
	FinancialStatusConfirmed FinancialStatus = "confirmed"
	FinancialStatusPaid      FinancialStatus = "paid"
	FinancialStatusCancelled FinancialStatus = "cancelled"
)

// Valid reports whether s is a known financial status.
func (s FinancialStatus) Valid() bool {
	switch s {
	case FinancialStatusDraft, FinancialStatusConfirmed, FinancialStatusPaid, FinancialStatusCancelled:
		return true
	}
	return false
}

// PaymentType classifies a payment installment.
type PaymentType string

const (
	PaymentTypeInstallment PaymentType = "installment"
	PaymentTypeBalance     PaymentType = "balance"
	PaymentTypeDeposit     PaymentType = "deposit"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeInstallment, PaymentTypeBalance, PaymentTypeDeposit:
		return true
	}
	return false
}

// FinancialRecord is the per-trip ledger entry. GrossCommission,
// SupplierCommission, AgentCommission and BalanceDue are derived and are
// only ever written from the calculator output.
type FinancialRecord struct {
	ID     string `json:"id"`
	TripID string `json:"trip_id"`

	PracticeNumber string `json:"practice_number"` // Practice sheet number
	BookingNumber  string `json:"booking_number"`  // Supplier booking reference

	GrossAmount         decimal.Decimal `json:"gross_amount"`
	NetAmount           decimal.Decimal `json:"net_amount"`
	Discount            decimal.Decimal `json:"discount"`
	ConfirmationDeposit decimal.Decimal `json:"confirmation_deposit"`

	GrossCommission    decimal.Decimal `json:"gross_commission"`
	SupplierCommission decimal.Decimal `json:"supplier_commission"`
	AgentCommission    decimal.Decimal `json:"agent_commission"`
	BalanceDue         decimal.Decimal `json:"balance_due"`

	PracticeConfirmDate time.Time `json:"practice_confirm_date"`
	ClientDepartureDate time.Time `json:"client_departure_date"`

	Status    FinancialStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	UpdatedBy string          `json:"updated_by,omitempty"`
}

// PaymentInstallment is a partial payment. It belongs to a financial record,
// never to a trip directly.
type PaymentInstallment struct {
	ID                string          `json:"id"`
	FinancialRecordID string          `json:"trip_admin_id"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       time.Time       `json:"payment_date"`
	PaymentType       PaymentType     `json:"payment_type"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
}

// FinancialSheet is a financial record together with its installments, as
// read back by staff.
type FinancialSheet struct {
	Record       *FinancialRecord      `json:"record"`
	Installments []*PaymentInstallment `json:"installments"`
	TotalPaid    decimal.Decimal       `json:"total_paid"`
}
