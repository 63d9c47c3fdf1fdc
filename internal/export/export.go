// Package export renders yearly reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"drivertrack/internal/tracker"
)

// ContentType is the MIME type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headings = []string{
	"Month", "Gross", "Weekly expenses", "Monthly expenses",
	"Net before tax", "Tax", "Savings after tax",
}

// SheetName is the single sheet of a year's workbook.
func SheetName(year int) string {
	return fmt.Sprintf("Year %d", year)
}

// Build lays out the report: a header, one row per month and a totals row.
// Net before tax is left blank in the totals row.
func Build(rep tracker.YearReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := SheetName(rep.Year)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := make([][]any, 0, len(rep.Months)+2)
	header := make([]any, len(headings))
	for i, h := range headings {
		header[i] = h
	}
	rows = append(rows, header)
	for _, m := range rep.Months {
		s := m.Summary
		rows = append(rows, []any{
			m.Label, s.Gross, s.WeeklyExpensesTotal, s.MonthlyExpensesTotal,
			s.NetBeforeTax, s.Tax, s.SavingsAfterTax,
		})
	}
	t := rep.Totals
	rows = append(rows, []any{
		"Total", t.Gross, t.WeeklyExpensesTotal, t.MonthlyExpensesTotal, "", t.Tax, t.SavingsAfterTax,
	})

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f, nil
}

// WriteYearReport writes the workbook to w.
func WriteYearReport(w io.Writer, rep tracker.YearReport) error {
	f, err := Build(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveYearReport writes the workbook to path through a temporary file in the
// same directory, so readers never see a partial file.
func SaveYearReport(path string, rep tracker.YearReport) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteYearReport(tmp, rep); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename workbook: %w", err)
	}
	return nil
}

// YearFile is the workbook path of year inside dir.
func YearFile(dir string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.xlsx", year))
}
