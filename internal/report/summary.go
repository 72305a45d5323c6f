// Package report renders the optional summary workbook attached to the
// accountant email.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"rendiconto/internal/core"
)

const (
	SummaryFilename    = "summary.xlsx"
	SummaryContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Summary"
)

// Summary is everything the workbook shows for one period.
type Summary struct {
	Period         core.ReportingPeriod
	Reconciliation core.ReconciliationResult
	Undocumented   []core.SupplierTotal
}

// BuildWorkbook renders s as a single-sheet xlsx file.
func BuildWorkbook(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	w := &sheetWriter{f: f, row: 1}
	w.put("Period", s.Period.Label())
	w.put("From", s.Period.FromDate())
	w.put("To", s.Period.ToDate())
	w.blank()

	w.put("Missing suppliers")
	for _, name := range s.Reconciliation.Missing {
		w.put("", name)
	}
	w.blank()

	w.put("Short suppliers")
	for _, name := range s.Reconciliation.Short {
		w.put("", name)
	}
	w.blank()

	w.put("Undocumented expenses", "Supplier", "Total")
	for _, t := range s.Undocumented {
		w.put("", t.Supplier, t.Total.InexactFloat64())
	}

	if w.err != nil {
		return nil, fmt.Errorf("write summary: %w", w.err)
	}
	if err := f.SetColWidth(sheetName, "A", "B", 32); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

func (w *sheetWriter) put(values ...any) {
	if w.err != nil {
		return
	}
	for col, v := range values {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, w.row)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetCellValue(sheetName, cell, v); err != nil {
			w.err = err
			return
		}
	}
	w.row++
}

func (w *sheetWriter) blank() { w.row++ }
