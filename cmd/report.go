package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tripledger/internal/logger"
	"tripledger/internal/report"
	"tripledger/internal/sheets"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the financial report of confirmed records",
	Long: `Build the financial report over confirmed financial records, filtered by
practice confirmation date. A year without a month adds a monthly breakdown.

The report can be written to an Excel workbook (--xlsx) and appended to a
Google Sheet (--sheet).

Environment variables for --sheet:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Target spreadsheet URL
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default: Financial_Report)`,
	Example: `  # Whole of 2025 with monthly breakdown
  tripledger report --year 2025

  # March 2025 for one agent, exported to Excel
  tripledger report --year 2025 --month 3 --agent a-17 --xlsx march.xlsx

  # Append the year to the configured Google Sheet
  tripledger report --year 2025 --sheet`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int("year", 0, "Report year (default: all years)")
	reportCmd.Flags().Int("month", 0, "Report month 1-12 (requires --year)")
	reportCmd.Flags().String("agent", "", "Restrict to one agent's trips")
	reportCmd.Flags().String("xlsx", "", "Write the report to this Excel file")
	reportCmd.Flags().Bool("sheet", false, "Append the report rows to the configured Google Sheet")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	agent, _ := cmd.Flags().GetString("agent")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	toSheet, _ := cmd.Flags().GetBool("sheet")

	filter := report.Filter{Year: year, Month: month, AgentID: agent}
	if err := filter.Validate(); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		rep, err := a.reports.Financial(ctx, a.operator(), filter)
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}

		if xlsxPath != "" {
			if err := writeXLSXFile(xlsxPath, rep); err != nil {
				return err
			}
			log.Info().Str("file", xlsxPath).Int("rows", len(rep.Lines)).Msg("Excel report written")
		}

		if toSheet {
			if a.cfg.GoogleSheetURL == "" {
				return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --sheet")
			}
			svc, err := sheets.NewSheetsService(ctx, a.cfg.GoogleSheetURL)
			if err != nil {
				return fmt.Errorf("failed to create sheets service: %w", err)
			}
			if err := svc.WriteReport(ctx, a.cfg.GoogleSheetWorksheet, report.Columns, report.Rows(rep)); err != nil {
				return fmt.Errorf("failed to write report to sheet: %w", err)
			}
		}

		return printResult(cmd, rep, func() { printReport(rep) })
	})
}

func writeXLSXFile(path string, rep *report.FinancialReport) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := report.WriteXLSX(f, rep); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printReport(rep *report.FinancialReport) {
	t := rep.Totals
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Confirmed trips\t%d\n", t.TotalTrips)
	fmt.Fprintf(w, "Gross revenue\t%s\n", t.GrossRevenue.StringFixed(2))
	fmt.Fprintf(w, "Net revenue\t%s\n", t.NetRevenue.StringFixed(2))
	fmt.Fprintf(w, "Discounts\t%s\n", t.TotalDiscounts.StringFixed(2))
	fmt.Fprintf(w, "Supplier commissions\t%s\n", t.SupplierCommissions.StringFixed(2))
	fmt.Fprintf(w, "Agent commissions\t%s\n", t.AgentCommissions.StringFixed(2))
	fmt.Fprintf(w, "Client departures\t%d\n", t.ClientDepartures)
	w.Flush()

	if len(rep.MonthlyBreakdown) == 0 {
		return
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tTRIPS\tGROSS\tSUPPLIER\tAGENT")
	for _, m := range rep.MonthlyBreakdown {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", m.MonthName, m.TotalTrips,
			m.GrossRevenue.StringFixed(2), m.SupplierCommissions.StringFixed(2), m.AgentCommissions.StringFixed(2))
	}
	w.Flush()
}
