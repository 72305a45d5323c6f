package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rendiconto/internal/core"
)

var marApr = core.ReportingPeriod{Start: core.NewDate(2025, 3, 1), End: core.NewDate(2025, 4, 30)}

func TestStore_FiltersByPeriod(t *testing.T) {
	s := New([]core.ExpenseRecord{
		{ID: "a", Date: core.NewDate(2025, 2, 28), SupplierName: "X", Amount: decimal.NewFromInt(1)},
		{ID: "b", Date: core.NewDate(2025, 3, 1), SupplierName: "X", Amount: decimal.NewFromInt(2)},
		{ID: "c", Date: core.NewDate(2025, 4, 30), SupplierName: "Y", Amount: decimal.NewFromInt(3)},
	}, []core.IncomeRecord{
		{ID: "i1", Type: core.DocumentTaxInvoice, Date: core.NewDate(2024, 11, 2)},
		{ID: "r1", Type: core.DocumentReceipt, Date: core.NewDate(2025, 3, 5)},
	})

	exp, err := s.FetchExpenses(context.Background(), marApr)
	require.NoError(t, err)
	require.Len(t, exp, 2)
	assert.Equal(t, "b", exp[0].ID)
	assert.Equal(t, "c", exp[1].ID)

	inc, err := s.FetchIncomes(context.Background(), marApr, false)
	require.NoError(t, err)
	require.Len(t, inc, 1)

	all, err := s.FetchIncomes(context.Background(), marApr, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_AddAndCancelledContext(t *testing.T) {
	s := New(nil, nil)
	s.AddExpense(core.ExpenseRecord{ID: "x", Date: core.NewDate(2025, 3, 10)})
	s.AddIncome(core.IncomeRecord{ID: "y", Date: core.NewDate(2025, 3, 10)})

	exp, err := s.FetchExpenses(context.Background(), marApr)
	require.NoError(t, err)
	assert.Len(t, exp, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.FetchIncomes(ctx, marApr, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, expensesFile), []byte(`[
		{"id":"e1","documentDate":"2025-03-02","supplier":{"name":"Bezeq"},"amount":10}
	]`), 0o644))

	s, err := NewFromFiles(dir)
	require.NoError(t, err)
	exp, err := s.FetchExpenses(context.Background(), marApr)
	require.NoError(t, err)
	require.Len(t, exp, 1)
	assert.Equal(t, "Bezeq", exp[0].SupplierName)

	inc, err := s.FetchIncomes(context.Background(), marApr, true)
	require.NoError(t, err)
	assert.Empty(t, inc)
}

func TestNewFromFiles_BadFixture(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, incomesFile), []byte(`{not json`), 0o644))
	_, err := NewFromFiles(dir)
	assert.Error(t, err)
}
