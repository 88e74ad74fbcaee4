package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tripledger/internal/logger"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair financial records that drifted from their trip or installments",
	Long: `Check every financial record whose trip still exists.

Records of a confirmed or draft trip sitting in the other of those two states
get the trip status mirrored again; paid and cancelled records are left alone.
Commissions and balance due are recomputed from the current installments and
rewritten when they differ from what is stored.

Orphaned records are not touched; run "tripledger sweep" for those.`,
	Example: `  tripledger reconcile
  tripledger reconcile --json`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		log.Info().Msg("Starting financial record reconciliation")

		rep, err := a.integrity.Repair(ctx, a.operator())
		if err != nil {
			return fmt.Errorf("reconciliation failed: %w", err)
		}

		return printResult(cmd, rep, func() {
			fmt.Printf("Checked %d financial records\n", rep.RecordsChecked)
			fmt.Printf("  status repaired:  %d\n", rep.StatusRepaired)
			fmt.Printf("  derived repaired: %d\n", rep.DerivedRepaired)
		})
	})
}
