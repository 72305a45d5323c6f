package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Expectation is the number of bills a supplier is expected to issue per
// reporting period.
type Expectation struct {
	Supplier string `yaml:"supplier"`
	Expected int    `yaml:"expected"`
}

// ExpectationTable maps supplier names to expected bill counts, keeping the
// order in which suppliers were declared.
type ExpectationTable struct {
	entries []Expectation
	index   map[string]int
}

// NewExpectationTable builds a table, rejecting blank names, negative counts
// and duplicate suppliers.
func NewExpectationTable(entries ...Expectation) (ExpectationTable, error) {
	t := ExpectationTable{
		entries: make([]Expectation, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Supplier) == "" {
			return ExpectationTable{}, ErrEmptySupplier
		}
		if e.Expected < 0 {
			return ExpectationTable{}, fmt.Errorf("supplier %q: expected count %d must not be negative", e.Supplier, e.Expected)
		}
		if _, dup := t.index[e.Supplier]; dup {
			return ExpectationTable{}, fmt.Errorf("supplier %q declared twice", e.Supplier)
		}
		t.index[e.Supplier] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Entries returns a copy of the table in declaration order.
func (t ExpectationTable) Entries() []Expectation {
	return append([]Expectation(nil), t.entries...)
}

// Expected returns the expected count for supplier.
func (t ExpectationTable) Expected(supplier string) (int, bool) {
	i, ok := t.index[supplier]
	if !ok {
		return 0, false
	}
	return t.entries[i].Expected, true
}

func (t ExpectationTable) Len() int { return len(t.entries) }

// DefaultExpectations is the hand-maintained list of recurring bills.
// Names must match the supplier names stored by the bookkeeping service
// byte for byte, including the double space in the water utility.
func DefaultExpectations() ExpectationTable {
	t, err := NewExpectationTable(
		Expectation{Supplier: `פלאפון תקשורת בע"מ`, Expected: 2},
		Expectation{Supplier: `תאומי אורלי`, Expected: 2},
		Expectation{Supplier: `פז חברת נפט בע"מ`, Expected: 0},
		Expectation{Supplier: `אלקטרה פאוור סופרגז בע"מ`, Expected: 1},
		Expectation{Supplier: `מי  מודיעין בע"מ`, Expected: 1},
		Expectation{Supplier: `סלופארק טכנולוגיות`, Expected: 2},
		Expectation{Supplier: `בזק החברה הישראלית לתקשורת בע"מ`, Expected: 2},
		Expectation{Supplier: `דרך ארץ הייווייז (1997) בע"מ`, Expected: 2},
		Expectation{Supplier: `חברת החשמל לישראל בעמ`, Expected: 1},
		Expectation{Supplier: `ביטוח לאומי`, Expected: 2},
		Expectation{Supplier: `רשות המיסים - מס הכנסה`, Expected: 1},
		Expectation{Supplier: `רשות המיסים - מע"מ`, Expected: 1},
		Expectation{Supplier: `ביטוח ישיר`, Expected: 2},
	)
	if err != nil {
		panic(fmt.Sprintf("default expectations: %v", err))
	}
	return t
}

// LoadExpectations reads a YAML list of {supplier, expected} entries.
func LoadExpectations(path string) (ExpectationTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ExpectationTable{}, fmt.Errorf("read expectations file: %w", err)
	}
	var entries []Expectation
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return ExpectationTable{}, fmt.Errorf("parse expectations file %s: %w", path, err)
	}
	t, err := NewExpectationTable(entries...)
	if err != nil {
		return ExpectationTable{}, fmt.Errorf("expectations file %s: %w", path, err)
	}
	return t, nil
}
