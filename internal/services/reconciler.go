package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"rendiconto/internal/core"
)

// Reconcile compares the period's expenses with the expectation table.
//
// Missing lists table suppliers with no expense at all, Short those with
// fewer expenses than expected. A supplier with nothing recorded and a
// positive expectation appears in both. Suppliers outside the table are
// ignored. Both lists follow table order.
func Reconcile(expenses []core.ExpenseRecord, table core.ExpectationTable) core.ReconciliationResult {
	counts := make(map[string]int, len(expenses))
	for _, e := range expenses {
		counts[e.SupplierName]++
	}

	res := core.ReconciliationResult{Missing: []string{}, Short: []string{}}
	for _, exp := range table.Entries() {
		n := counts[exp.Supplier]
		if n == 0 {
			res.Missing = append(res.Missing, exp.Supplier)
		}
		if n < exp.Expected {
			res.Short = append(res.Short, exp.Supplier)
		}
	}
	return res
}

// SumUndocumented totals the amounts of expenses without an attached bill,
// per supplier, in the order suppliers are first seen.
func SumUndocumented(expenses []core.ExpenseRecord) []core.SupplierTotal {
	idx := make(map[string]int)
	var out []core.SupplierTotal
	for _, e := range expenses {
		if e.Documented() {
			continue
		}
		i, ok := idx[e.SupplierName]
		if !ok {
			i = len(out)
			idx[e.SupplierName] = i
			out = append(out, core.SupplierTotal{Supplier: e.SupplierName, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	return out
}

// FormatSummary renders totals as "supplier: total" lines.
func FormatSummary(totals []core.SupplierTotal) string {
	lines := make([]string, 0, len(totals))
	for _, t := range totals {
		lines = append(lines, t.Supplier+": "+t.Total.String())
	}
	return strings.Join(lines, "\n")
}
