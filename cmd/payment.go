package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tripledger/internal/logger"
	"tripledger/pkg/models"
	"tripledger/pkg/services"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Payment installment operations",
}

var paymentAddCmd = &cobra.Command{
	Use:   "add <record-id>",
	Short: "Register a payment installment and recompute the balance",
	Example: `  tripledger payment add 9b2e... --amount 500 --date 2025-03-01
  tripledger payment add 9b2e... --amount 1200.50 --type balance --notes "bank transfer"`,
	Args: cobra.ExactArgs(1),
	RunE: runPaymentAdd,
}

var paymentRemoveCmd = &cobra.Command{
	Use:   "remove <installment-id>",
	Short: "Delete a payment installment and recompute the balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaymentRemove,
}

func init() {
	rootCmd.AddCommand(paymentCmd)
	paymentCmd.AddCommand(paymentAddCmd)
	paymentCmd.AddCommand(paymentRemoveCmd)

	paymentAddCmd.Flags().String("amount", "", "Amount paid (required)")
	paymentAddCmd.Flags().String("date", "", "Payment date (format: YYYY-MM-DD, default: today)")
	paymentAddCmd.Flags().String("type", string(models.PaymentTypeInstallment), "Payment type: installment, balance or deposit")
	paymentAddCmd.Flags().String("notes", "", "Free-text notes")
	_ = paymentAddCmd.MarkFlagRequired("amount")
}

func runPaymentAdd(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payment")

	amountStr, _ := cmd.Flags().GetString("amount")
	dateStr, _ := cmd.Flags().GetString("date")
	paymentType, _ := cmd.Flags().GetString("type")
	notes, _ := cmd.Flags().GetString("notes")

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}

	var date time.Time
	if dateStr != "" {
		date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return fmt.Errorf("invalid date format. Use YYYY-MM-DD: %w", err)
		}
	}

	in := services.InstallmentInput{
		Amount:      amount,
		PaymentDate: date,
		PaymentType: models.PaymentType(paymentType),
		Notes:       notes,
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		log.Info().Str("record_id", args[0]).Str("amount", amount.String()).Msg("Adding payment installment")

		inst, err := a.ledger.AddInstallment(ctx, a.operator(), args[0], in)
		if err != nil {
			return fmt.Errorf("add payment: %w", err)
		}

		return printResult(cmd, inst, func() {
			fmt.Printf("Installment %s added to record %s: %s (%s)\n",
				inst.ID, inst.FinancialRecordID, inst.Amount.StringFixed(2), inst.PaymentType)
		})
	})
}

func runPaymentRemove(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("payment")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		log.Info().Str("installment_id", args[0]).Msg("Removing payment installment")

		inst, err := a.ledger.RemoveInstallment(ctx, a.operator(), args[0])
		if err != nil {
			return fmt.Errorf("remove payment: %w", err)
		}

		return printResult(cmd, inst, func() {
			fmt.Printf("Installment %s removed from record %s\n", inst.ID, inst.FinancialRecordID)
		})
	})
}
