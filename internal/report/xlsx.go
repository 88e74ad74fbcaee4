package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Financial Report"

// Columns are the export headers, in order.
var Columns = []string{
	"Practice Number",
	"Booking Number",
	"Trip",
	"Client",
	"Practice Confirm Date",
	"Departure Date",
	"Gross Amount",
	"Supplier Commission",
	"Discount",
	"Agent Commission",
}

const maxColumnWidth = 50

// Rows flattens the report lines into export rows matching Columns. Money is
// kept as decimal strings.
func Rows(rep *FinancialReport) [][]string {
	rows := make([][]string, 0, len(rep.Lines))
	for _, l := range rep.Lines {
		rows = append(rows, []string{
			l.PracticeNumber,
			l.BookingNumber,
			l.TripTitle,
			l.ClientID,
			formatDate(l.PracticeConfirmDate),
			formatDate(l.ClientDepartureDate),
			l.GrossAmount.StringFixed(2),
			l.SupplierCommission.StringFixed(2),
			l.Discount.StringFixed(2),
			l.AgentCommission.StringFixed(2),
		})
	}
	return rows
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// WriteXLSX renders the report lines as a single-sheet workbook.
func WriteXLSX(w io.Writer, rep *FinancialReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	widths := make([]int, len(Columns))
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", h, err)
		}
		widths[i] = len(h)
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for r, line := range rep.Lines {
		row := r + 2
		values := []any{
			line.PracticeNumber,
			line.BookingNumber,
			line.TripTitle,
			line.ClientID,
			formatDate(line.PracticeConfirmDate),
			formatDate(line.ClientDepartureDate),
			line.GrossAmount.InexactFloat64(),
			line.SupplierCommission.InexactFloat64(),
			line.Discount.InexactFloat64(),
			line.AgentCommission.InexactFloat64(),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			if n := len(fmt.Sprint(v)); n > widths[c] {
				widths[c] = n
			}
		}
	}

	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, float64(min(wd+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("set width of %s: %w", col, err)
		}
	}

	return f.Write(w)
}

// ExportFilename names the workbook after the report period.
func ExportFilename(f Filter) string {
	switch {
	case f.Year != 0 && f.Month != 0:
		return fmt.Sprintf("financial_report_%d_%02d.xlsx", f.Year, f.Month)
	case f.Year != 0:
		return fmt.Sprintf("financial_report_%d.xlsx", f.Year)
	default:
		return "financial_report_all_years.xlsx"
	}
}
