package bookkeeping

import (
	"context"
	"errors"

	"rendiconto/internal/core"
)

// ErrMalformedResponse is returned when the bookkeeping service answers with
// a payload that lacks a required field.
var ErrMalformedResponse = errors.New("malformed bookkeeping response")

// Ports for the bookkeeping service.
type (
	ExpenseFetcher interface {
		// FetchExpenses returns the expenses dated within the period.
		FetchExpenses(ctx context.Context, period core.ReportingPeriod) ([]core.ExpenseRecord, error)
	}

	IncomeFetcher interface {
		// FetchIncomes returns the income documents dated within the period,
		// or the whole ledger when allRecords is set.
		FetchIncomes(ctx context.Context, period core.ReportingPeriod, allRecords bool) ([]core.IncomeRecord, error)
	}

	Client interface {
		ExpenseFetcher
		IncomeFetcher
	}
)
