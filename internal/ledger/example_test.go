package ledger_test

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tripledger/internal/ledger"
)

// ExampleCalculate computes the derived figures of a record with a
// confirmation deposit and one installment.
func ExampleCalculate() {
	d := ledger.Calculate(ledger.Inputs{
		GrossAmount:         decimal.NewFromInt(2000),
		NetAmount:           decimal.NewFromInt(1800),
		Discount:            decimal.NewFromInt(100),
		ConfirmationDeposit: decimal.NewFromInt(500),
		Installments:        []decimal.Decimal{decimal.NewFromInt(700)},
	})

	fmt.Println("gross commission:", d.GrossCommission.StringFixed(2))
	fmt.Println("supplier commission:", d.SupplierCommission.StringFixed(2))
	fmt.Println("agent commission:", d.AgentCommission.StringFixed(2))
	fmt.Println("balance due:", d.BalanceDue.StringFixed(2))
	// Output:
	// gross commission: 100.00
	// supplier commission: 80.00
	// agent commission: 20.00
	// balance due: 800.00
}
