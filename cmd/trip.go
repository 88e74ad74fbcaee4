package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tripledger/internal/integrity"
	"tripledger/internal/logger"
	"tripledger/pkg/models"
)

var tripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Trip lifecycle operations",
}

var tripDeleteCmd = &cobra.Command{
	Use:   "delete <trip-id>",
	Short: "Delete a trip and every document depending on it",
	Long: `Delete a trip together with its financial records, their payment
installments, itineraries, cruise info, client notes and client photos.

Each step runs even when an earlier one fails. Failed steps are listed and
the command exits non-zero; running it again on the same id finishes the job.`,
	Args: cobra.ExactArgs(1),
	RunE: runTripDelete,
}

var tripStatusCmd = &cobra.Command{
	Use:   "status <trip-id> <status>",
	Short: "Change a trip's status and mirror it onto the financial record",
	Long: `Change a trip's status. Valid statuses: draft, active, confirmed, completed,
cancelled. Moving to active or confirmed requires a title and a client.

Confirmed and draft are mirrored onto the trip's financial record.`,
	Example: `  tripledger trip status 3f1c... confirmed`,
	Args:    cobra.ExactArgs(2),
	RunE:    runTripStatus,
}

func init() {
	rootCmd.AddCommand(tripCmd)
	tripCmd.AddCommand(tripDeleteCmd)
	tripCmd.AddCommand(tripStatusCmd)
}

func runTripDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("trip")
	tripID := args[0]

	return withApp(cmd, func(ctx context.Context, a *app) error {
		log.Info().Str("trip_id", tripID).Msg("Deleting trip")

		rep, err := a.integrity.DeleteTrip(ctx, a.operator(), tripID)
		var cascadeErr *integrity.CascadeError
		if err != nil && !errors.As(err, &cascadeErr) {
			return fmt.Errorf("delete trip: %w", err)
		}

		if perr := printResult(cmd, rep, func() {
			fmt.Printf("Trip %s: deleted %d documents\n", tripID, rep.Total())
			fmt.Printf("  trip                 %d\n", rep.Trip)
			fmt.Printf("  financial_records    %d\n", rep.FinancialRecords)
			fmt.Printf("  payment_installments %d\n", rep.PaymentInstallments)
			fmt.Printf("  itineraries          %d\n", rep.Itineraries)
			fmt.Printf("  cruise_info          %d\n", rep.CruiseInfo)
			fmt.Printf("  client_notes         %d\n", rep.ClientNotes)
			fmt.Printf("  client_photos        %d\n", rep.ClientPhotos)
		}); perr != nil {
			return perr
		}
		return err
	})
}

func runTripStatus(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("trip")
	tripID, status := args[0], models.TripStatus(args[1])

	return withApp(cmd, func(ctx context.Context, a *app) error {
		log.Info().Str("trip_id", tripID).Str("status", string(status)).Msg("Changing trip status")

		change, err := a.lifecycle.ChangeStatus(ctx, a.operator(), tripID, status)
		if err != nil {
			return fmt.Errorf("change status: %w", err)
		}

		return printResult(cmd, change, func() {
			fmt.Println(change.Message)
			fmt.Printf("  financial records mirrored: %d\n", change.MirroredRecords)
			if change.MirrorError != "" {
				fmt.Printf("  mirror failed: %s\n", change.MirrorError)
			}
		})
	})
}
