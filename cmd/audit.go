package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tripledger/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent cascade deletions, sweeps and repairs",
	Long: `Show the most recent entries of the audit history. The history is kept in
Redis when REDIS_ADDR is set; otherwise it only lives as long as the process.`,
	Example: `  tripledger audit --kind deletion --limit 20`,
	RunE:    runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().String("kind", string(audit.KindDeletion), "Entry kind: deletion, sweep or repair")
	auditCmd.Flags().Int64("limit", 10, "Maximum number of entries")
}

func runAudit(cmd *cobra.Command, args []string) error {
	kindStr, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt64("limit")

	kind := audit.Kind(kindStr)
	if !kind.Valid() {
		return fmt.Errorf("unknown audit kind %q", kindStr)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		entries, err := a.audit.Recent(ctx, kind, limit)
		if err != nil {
			return fmt.Errorf("read audit history: %w", err)
		}

		return printResult(cmd, entries, func() {
			if len(entries) == 0 {
				fmt.Printf("No %s entries recorded\n", kind)
				return
			}
			for _, e := range entries {
				status := "ok"
				if e.Failed {
					status = "incomplete"
				}
				fmt.Printf("%s  %-10s  %-10s  %s\n", e.At.Format("2006-01-02 15:04:05"), e.ActorID, status, e.Report)
			}
		})
	})
}
