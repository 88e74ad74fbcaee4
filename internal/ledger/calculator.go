package ledger

import (
	"github.com/shopspring/decimal"

	"tripledger/internal/store"
	"tripledger/pkg/models"
)

// SupplierCommissionRate is the share of the gross amount retained by the
// supplier. It is agency policy and applies to every trip.
var SupplierCommissionRate = decimal.RequireFromString("0.04")

// Inputs are the raw figures the derived fields are computed from.
type Inputs struct {
	GrossAmount         decimal.Decimal
	NetAmount           decimal.Decimal
	Discount            decimal.Decimal
	ConfirmationDeposit decimal.Decimal
	Installments        []decimal.Decimal
}

// Derived are the calculator outputs. TotalPaid is informational and is not
// stored on the record.
type Derived struct {
	GrossCommission    decimal.Decimal
	SupplierCommission decimal.Decimal
	AgentCommission    decimal.Decimal
	TotalPaid          decimal.Decimal
	BalanceDue         decimal.Decimal
}

// Calculate computes commissions and balance due. It has no error cases:
// negative figures are valid results, a negative balance due means the
// client overpaid.
func Calculate(in Inputs) Derived {
	grossCommission := in.GrossAmount.Sub(in.Discount).Sub(in.NetAmount)
	supplierCommission := in.GrossAmount.Mul(SupplierCommissionRate)

	totalPaid := in.ConfirmationDeposit
	for _, amount := range in.Installments {
		totalPaid = totalPaid.Add(amount)
	}

	return Derived{
		GrossCommission:    grossCommission,
		SupplierCommission: supplierCommission,
		AgentCommission:    grossCommission.Sub(supplierCommission),
		TotalPaid:          totalPaid,
		BalanceDue:         in.GrossAmount.Sub(totalPaid),
	}
}

// InputsFor collects the calculator inputs of a record and its current
// installments.
func InputsFor(rec *models.FinancialRecord, installments []*models.PaymentInstallment) Inputs {
	amounts := make([]decimal.Decimal, 0, len(installments))
	for _, inst := range installments {
		amounts = append(amounts, inst.Amount)
	}
	return Inputs{
		GrossAmount:         rec.GrossAmount,
		NetAmount:           rec.NetAmount,
		Discount:            rec.Discount,
		ConfirmationDeposit: rec.ConfirmationDeposit,
		Installments:        amounts,
	}
}

// Apply copies the stored derived fields onto rec.
func (d Derived) Apply(rec *models.FinancialRecord) {
	rec.GrossCommission = d.GrossCommission
	rec.SupplierCommission = d.SupplierCommission
	rec.AgentCommission = d.AgentCommission
	rec.BalanceDue = d.BalanceDue
}

// Fields returns the stored subset of d.
func (d Derived) Fields() store.DerivedFields {
	return store.DerivedFields{
		GrossCommission:    d.GrossCommission,
		SupplierCommission: d.SupplierCommission,
		AgentCommission:    d.AgentCommission,
		BalanceDue:         d.BalanceDue,
	}
}

// Matches reports whether the derived fields stored on rec equal d.
func (d Derived) Matches(rec *models.FinancialRecord) bool {
	return rec.GrossCommission.Equal(d.GrossCommission) &&
		rec.SupplierCommission.Equal(d.SupplierCommission) &&
		rec.AgentCommission.Equal(d.AgentCommission) &&
		rec.BalanceDue.Equal(d.BalanceDue)
}
