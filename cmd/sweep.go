package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tripledger/internal/logger"
	"tripledger/pkg/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete documents whose trip or financial record no longer exists",
	Long: `Sweep every collection keyed by trip_id (trip_admin, itineraries, cruise_info,
client_notes, client_photos) and delete documents pointing at a trip that no
longer exists. Payment installments whose financial record is gone are
deleted afterwards.

A second sweep with no writes in between reports zero.`,
	Example: `  # Count orphans without deleting
  tripledger sweep --dry-run

  # Delete orphans and print the report as JSON
  tripledger sweep --json`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Bool("dry-run", false, "Count orphans but don't delete them")
}

func runSweep(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sweep")

	dryRun, _ := cmd.Flags().GetBool("dry-run")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		log.Info().Bool("dry_run", dryRun).Msg("Starting orphan sweep")

		rep, err := a.integrity.Sweep(ctx, a.operator(), services.SweepOptions{DryRun: dryRun})
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		return printResult(cmd, rep, func() {
			verb := "Deleted"
			if rep.DryRun {
				verb = "Would delete"
			}
			keys := make([]string, 0, len(rep.Details))
			for k := range rep.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fmt.Printf("%s %d orphaned documents (%d trips remain)\n", verb, rep.TotalDeleted, rep.RemainingTrips)
			for _, k := range keys {
				fmt.Printf("  %-22s %d\n", k, rep.Details[k])
			}
		})
	})
}
