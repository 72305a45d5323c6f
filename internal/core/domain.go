package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	Date struct {
		time.Time
	}

	// ReportingPeriod is the two-month window reported to the accountant.
	ReportingPeriod struct {
		Start Date
		End   Date
	}

	// ExpenseRecord is a single expense as returned by the bookkeeping service.
	// DocumentURL is empty when no bill was attached.
	ExpenseRecord struct {
		ID           string
		Date         Date
		SupplierName string
		Amount       decimal.Decimal
		DocumentURL  string
	}

	// IncomeRecord is an income document (receipt, invoice, ...). URLs holds
	// the rendered document per language code, e.g. "he" or "en".
	IncomeRecord struct {
		ID      string
		Number  string
		Type    DocumentType
		Date    Date
		Remarks string
		URLs    map[string]string
	}

	// ReconciliationResult lists suppliers with no bills at all (Missing) and
	// suppliers with fewer bills than expected (Short). The two may overlap.
	ReconciliationResult struct {
		Missing []string
		Short   []string
	}

	// SupplierTotal is the summed amount of undocumented expenses of a supplier.
	SupplierTotal struct {
		Supplier string
		Total    decimal.Decimal
	}
)

var (
	ErrInvalidBimester = errors.New("invalid bimester: must be between 1 and 6")
	ErrEmptySupplier   = errors.New("empty supplier name")
)

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date as YYYY-MM-DD, the format used by the bookkeeping API.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date, read in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Documented reports whether a bill is attached to the expense.
func (e ExpenseRecord) Documented() bool {
	return strings.TrimSpace(e.DocumentURL) != ""
}

// URL returns the document link for the given language.
func (r IncomeRecord) URL(lang string) (string, bool) {
	u, ok := r.URLs[lang]
	if !ok || strings.TrimSpace(u) == "" {
		return "", false
	}
	return u, true
}

func (r IncomeRecord) IsReceipt() bool { return r.Type == DocumentReceipt }

func (r IncomeRecord) IsInvoice() bool { return r.Type == DocumentTaxInvoice }

// Clean reports whether nothing is missing or short.
func (r ReconciliationResult) Clean() bool {
	return len(r.Missing) == 0 && len(r.Short) == 0
}
