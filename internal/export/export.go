// Package export renders a user's expenses as downloadable XLSX or CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"spendwise/internal/core"
)

var headers = []string{"Date", "Description", "Category", "Source", "Amount"}

// ExpensesXLSX returns a workbook with one row per expense and a
// summary block underneath.
func ExpensesXLSX(expenses []core.Expense, summary core.MonthSummary) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Expenses"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	for i, h := range headers {
		write(i+1, 1, h)
	}

	row := 2
	for _, e := range expenses {
		write(1, row, e.Date.Format("2006-01-02"))
		write(2, row, e.Description)
		write(3, row, string(e.Category))
		write(4, row, string(e.Source))
		write(5, row, e.Amount.String())
		row++
	}

	// Summary block below the rows.
	row++
	write(1, row, fmt.Sprintf("Total for %04d-%02d", summary.Year, summary.Month))
	write(5, row, summary.Total.String())
	for _, ca := range summary.ByCategory {
		row++
		write(1, row, string(ca.Category))
		write(5, row, ca.Amount.String())
	}

	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "B", 40) // description
	_ = f.SetColWidth(sheet, "C", "D", 14) // category, source
	_ = f.SetColWidth(sheet, "E", "E", 12) // amount

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// ExpensesCSV returns the same rows as a plain CSV file.
func ExpensesCSV(expenses []core.Expense) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			e.Date.Format("2006-01-02"),
			e.Description,
			string(e.Category),
			string(e.Source),
			e.Amount.String(),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds a unique download name like
// "expenses-2024-03-6f1c....xlsx".
func Filename(year int, month time.Month, ext string) string {
	return fmt.Sprintf("expenses-%04d-%02d-%s.%s", year, month, uuid.NewString()[:8], ext)
}
