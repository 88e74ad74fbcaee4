package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tripledger/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "tripledger",
	Short: "Trip financial ledger and referential-integrity engine",
	Long: `tripledger keeps the financial records of travel-agency trips consistent.

It recomputes commissions and balances from payment installments, mirrors
trip status changes onto the financial record, deletes trips together with
every dependent document, and sweeps orphaned documents left behind.

Run "tripledger serve" for the HTTP API. The other commands run a single
operation against the configured store as the operator identity
(OPERATOR_ID, administrator role).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
}
