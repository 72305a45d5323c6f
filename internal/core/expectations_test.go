package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpectationTable(t *testing.T) {
	tbl, err := NewExpectationTable(
		Expectation{Supplier: "B", Expected: 1},
		Expectation{Supplier: "A", Expected: 2},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "B", tbl.Entries()[0].Supplier)

	n, ok := tbl.Expected("A")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = tbl.Expected("C")
	assert.False(t, ok)

	_, err = NewExpectationTable(Expectation{Supplier: "A", Expected: 1}, Expectation{Supplier: "A", Expected: 2})
	assert.Error(t, err)
	_, err = NewExpectationTable(Expectation{Supplier: " ", Expected: 1})
	assert.ErrorIs(t, err, ErrEmptySupplier)
	_, err = NewExpectationTable(Expectation{Supplier: "A", Expected: -1})
	assert.Error(t, err)
}

func TestExpectationTableEntriesIsCopy(t *testing.T) {
	tbl, err := NewExpectationTable(Expectation{Supplier: "A", Expected: 1})
	require.NoError(t, err)
	entries := tbl.Entries()
	entries[0].Expected = 99
	n, _ := tbl.Expected("A")
	assert.Equal(t, 1, n)
}

func TestDefaultExpectations(t *testing.T) {
	tbl := DefaultExpectations()
	assert.Equal(t, 13, tbl.Len())
	n, ok := tbl.Expected(`מי  מודיעין בע"מ`)
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	n, ok = tbl.Expected(`פז חברת נפט בע"מ`)
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}

func TestLoadExpectations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expectations.yaml")
	content := "- supplier: Electric Co\n  expected: 1\n- supplier: Phone Ltd\n  expected: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := LoadExpectations(path)
	require.NoError(t, err)
	assert.Equal(t, []Expectation{{"Electric Co", 1}, {"Phone Ltd", 2}}, tbl.Entries())

	_, err = LoadExpectations(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- supplier: X\n  expected: 1\n- supplier: X\n  expected: 1\n"), 0o644))
	_, err = LoadExpectations(bad)
	assert.Error(t, err)
}
