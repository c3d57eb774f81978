// AngelaMos | 2026
// export.go

package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary      = "Summary"
	SheetByStatus     = "By Status"
	SheetTopCustomers = "Top Customers"
	SheetTopDays      = "Top Days"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportXLSX renders a snapshot as a workbook with one sheet per section.
func ExportXLSX(s *Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}
	for _, name := range []string{SheetByStatus, SheetTopCustomers, SheetTopDays} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("export report: %w", err)
		}
	}

	r := s.Results
	summary := [][]any{
		{"Report", s.Title},
		{"From", s.StartDate.Format(time.DateOnly)},
		{"To", s.EndDate.Format(time.DateOnly)},
		{"Total amount", r.Summary.TotalAmount.InexactFloat64()},
		{"Orders", r.Summary.OrderCount},
		{"Average ticket", r.Summary.AverageTicket.InexactFloat64()},
		{"Cancelled orders", r.Summary.CancelledCount},
		{"Cancelled amount", r.Summary.CancelledAmount.InexactFloat64()},
	}
	if r.NoActivity {
		summary = append(summary, []any{"Note", r.Message})
	}

	byStatus := [][]any{{"Status", "Orders", "Subtotal"}}
	for _, b := range r.ByStatus {
		byStatus = append(byStatus, []any{b.Status, b.Count, b.Subtotal.InexactFloat64()})
	}

	customers := [][]any{{"User ID", "Name", "Email", "Orders", "Total spent"}}
	for _, c := range r.TopCustomers {
		customers = append(customers, []any{c.UserID, c.Name, c.Email, c.OrderCount, c.TotalSpent.InexactFloat64()})
	}

	days := [][]any{{"Date", "Orders", "Total"}}
	for _, d := range r.TopDays {
		days = append(days, []any{d.Date, d.OrderCount, d.Total.InexactFloat64()})
	}

	sheets := map[string][][]any{
		SheetSummary:      summary,
		SheetByStatus:     byStatus,
		SheetTopCustomers: customers,
		SheetTopDays:      days,
	}
	for sheet, rows := range sheets {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, fmt.Errorf("export report: %s: %w", sheet, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func ExportFilename(s *Snapshot) string {
	return fmt.Sprintf("report-%s-%s.xlsx", s.StartDate.Format(time.DateOnly), s.EndDate.Format(time.DateOnly))
}
