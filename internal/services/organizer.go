package services

import (
	"context"
	"fmt"

	"rendiconto/internal/core"
	applog "rendiconto/internal/log"
)

// LedgerFunc returns the full, unfiltered income ledger.
type LedgerFunc func(ctx context.Context) ([]core.IncomeRecord, error)

// OrganizedIncome is the result of OrganizeIncome.
type OrganizedIncome struct {
	// Documents is the reordered list: every receipt directly followed by
	// its invoice when one was found.
	Documents []core.IncomeRecord
	// Unpaired receipts whose invoice was found neither in the period nor
	// in the ledger.
	Unpaired []core.IncomeRecord
	// Unparsable receipts whose remarks carry no invoice reference.
	Unparsable []core.IncomeRecord
	// Dropped invoices not referenced by any receipt of the period.
	Dropped []core.IncomeRecord
}

// OrganizeIncome pairs receipts with their invoices.
//
// Invoices are placed right after the first receipt referencing them, looked
// up first in docs and then in the ledger, which is fetched at most once and
// only when needed. Invoices of the period that no receipt references are
// dropped. Other document types keep their relative order. docs is not
// modified.
func OrganizeIncome(ctx context.Context, docs []core.IncomeRecord, ledger LedgerFunc) (OrganizedIncome, error) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentOrganizer)

	local := make(map[string]int)
	referenced := make(map[string]bool)
	for i, d := range docs {
		switch {
		case d.IsInvoice():
			if _, seen := local[d.Number]; !seen {
				local[d.Number] = i
			}
		case d.IsReceipt():
			if ref, err := ParseInvoiceReference(d.Remarks); err == nil {
				referenced[ref] = true
			}
		}
	}

	var (
		res     = OrganizedIncome{Documents: make([]core.IncomeRecord, 0, len(docs))}
		emitted = make(map[string]bool)
		full    map[string]core.IncomeRecord
		fetched bool
	)

	lookupLedger := func(number string) (core.IncomeRecord, bool, error) {
		if !fetched {
			fetched = true
			if ledger == nil {
				return core.IncomeRecord{}, false, nil
			}
			all, err := ledger(ctx)
			if err != nil {
				return core.IncomeRecord{}, false, fmt.Errorf("fetch full ledger: %w", err)
			}
			full = make(map[string]core.IncomeRecord)
			for _, r := range all {
				if !r.IsInvoice() {
					continue
				}
				if _, seen := full[r.Number]; !seen {
					full[r.Number] = r
				}
			}
			logger.DebugContext(ctx, "Loaded full ledger", applog.FieldCount, len(all))
		}
		inv, ok := full[number]
		return inv, ok, nil
	}

	for i, d := range docs {
		if d.IsInvoice() {
			// The first invoice of a referenced number follows its receipt;
			// further copies keep their place.
			if referenced[d.Number] && local[d.Number] != i {
				res.Documents = append(res.Documents, d)
			}
			continue
		}
		res.Documents = append(res.Documents, d)
		if !d.IsReceipt() {
			continue
		}

		ref, err := ParseInvoiceReference(d.Remarks)
		if err != nil {
			logger.WarnContext(ctx, "Receipt remark has no invoice reference",
				applog.FieldDocumentNumber, d.Number,
				applog.FieldError, err)
			res.Unparsable = append(res.Unparsable, d)
			continue
		}
		if emitted[ref] {
			continue
		}

		if i, ok := local[ref]; ok {
			res.Documents = append(res.Documents, docs[i])
			emitted[ref] = true
			continue
		}

		inv, ok, err := lookupLedger(ref)
		if err != nil {
			return OrganizedIncome{}, err
		}
		if !ok {
			logger.InfoContext(ctx, "No invoice found for receipt",
				applog.FieldDocumentNumber, d.Number,
				"invoice_number", ref)
			res.Unpaired = append(res.Unpaired, d)
			continue
		}
		res.Documents = append(res.Documents, inv)
		emitted[ref] = true
	}

	for _, d := range docs {
		if d.IsInvoice() && !referenced[d.Number] {
			res.Dropped = append(res.Dropped, d)
		}
	}
	if len(res.Dropped) > 0 {
		logger.InfoContext(ctx, "Dropped invoices without receipt", applog.FieldCount, len(res.Dropped))
	}
	return res, nil
}
