// Package memory is an in-process bookkeeping backend used for local runs
// and tests. Records can be seeded from JSON fixtures in the API's format.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rendiconto/internal/bookkeeping"
	"rendiconto/internal/core"
)

const (
	expensesFile = "expenses.json"
	incomesFile  = "incomes.json"
)

type Store struct {
	mu       sync.Mutex
	expenses []core.ExpenseRecord
	incomes  []core.IncomeRecord
}

// Ensure interface conformance
var _ bookkeeping.Client = (*Store)(nil)

func New(expenses []core.ExpenseRecord, incomes []core.IncomeRecord) *Store {
	return &Store{
		expenses: append([]core.ExpenseRecord(nil), expenses...),
		incomes:  append([]core.IncomeRecord(nil), incomes...),
	}
}

// NewFromFiles loads expenses.json and incomes.json from dir. Each file holds
// a JSON array of items shaped like the API's search results. A missing file
// yields an empty ledger.
func NewFromFiles(dir string) (*Store, error) {
	var expItems []bookkeeping.ExpenseItem
	if err := readFixture(filepath.Join(dir, expensesFile), &expItems); err != nil {
		return nil, err
	}
	var incItems []bookkeeping.IncomeItem
	if err := readFixture(filepath.Join(dir, incomesFile), &incItems); err != nil {
		return nil, err
	}
	expenses, err := bookkeeping.ExpenseRecords(expItems)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", expensesFile, err)
	}
	incomes, err := bookkeeping.IncomeRecords(incItems)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", incomesFile, err)
	}
	return New(expenses, incomes), nil
}

// AddExpense appends an expense to the ledger.
func (s *Store) AddExpense(e core.ExpenseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
}

// AddIncome appends an income document to the ledger.
func (s *Store) AddIncome(r core.IncomeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomes = append(s.incomes, r)
}

func (s *Store) FetchExpenses(ctx context.Context, period core.ReportingPeriod) ([]core.ExpenseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ExpenseRecord, 0, len(s.expenses))
	for _, e := range s.expenses {
		if period.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) FetchIncomes(ctx context.Context, period core.ReportingPeriod, allRecords bool) ([]core.IncomeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.IncomeRecord, 0, len(s.incomes))
	for _, r := range s.incomes {
		if allRecords || period.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func readFixture(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return nil
}
