package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tripledger/pkg/models"
)

var financeCmd = &cobra.Command{
	Use:   "finance",
	Short: "Financial record operations",
}

var financeShowCmd = &cobra.Command{
	Use:   "show <trip-id>",
	Short: "Show a trip's financial record and installments",
	Args:  cobra.ExactArgs(1),
	RunE:  runFinanceShow,
}

func init() {
	rootCmd.AddCommand(financeCmd)
	financeCmd.AddCommand(financeShowCmd)
}

func runFinanceShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		sheet, err := a.ledger.GetSheet(ctx, a.operator(), args[0])
		if err != nil {
			return fmt.Errorf("show financial record: %w", err)
		}
		return printResult(cmd, sheet, func() { printSheet(sheet) })
	})
}

func printSheet(sheet *models.FinancialSheet) {
	r := sheet.Record
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Record\t%s\n", r.ID)
	fmt.Fprintf(w, "Trip\t%s\n", r.TripID)
	fmt.Fprintf(w, "Status\t%s\n", r.Status)
	fmt.Fprintf(w, "Practice / Booking\t%s / %s\n", r.PracticeNumber, r.BookingNumber)
	fmt.Fprintf(w, "Gross amount\t%s\n", r.GrossAmount.StringFixed(2))
	fmt.Fprintf(w, "Net amount\t%s\n", r.NetAmount.StringFixed(2))
	fmt.Fprintf(w, "Discount\t%s\n", r.Discount.StringFixed(2))
	fmt.Fprintf(w, "Deposit\t%s\n", r.ConfirmationDeposit.StringFixed(2))
	fmt.Fprintf(w, "Gross commission\t%s\n", r.GrossCommission.StringFixed(2))
	fmt.Fprintf(w, "Supplier commission\t%s\n", r.SupplierCommission.StringFixed(2))
	fmt.Fprintf(w, "Agent commission\t%s\n", r.AgentCommission.StringFixed(2))
	fmt.Fprintf(w, "Total paid\t%s\n", sheet.TotalPaid.StringFixed(2))
	fmt.Fprintf(w, "Balance due\t%s\n", r.BalanceDue.StringFixed(2))
	w.Flush()

	if len(sheet.Installments) == 0 {
		fmt.Println("\nNo payment installments")
		return
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tNOTES")
	for _, inst := range sheet.Installments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inst.ID, inst.PaymentDate.Format("2006-01-02"), inst.PaymentType, inst.Amount.StringFixed(2), inst.Notes)
	}
	w.Flush()
}
