package bookkeeping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rendiconto/internal/core"
)

// ExpenseItem is an expense as serialized by the bookkeeping API.
type ExpenseItem struct {
	ID           string          `json:"id"`
	DocumentDate string          `json:"documentDate"`
	Supplier     *SupplierRef    `json:"supplier"`
	Amount       decimal.Decimal `json:"amount"`
	URL          string          `json:"url,omitempty"`
}

type SupplierRef struct {
	Name string `json:"name"`
}

// IncomeItem is an income document as serialized by the bookkeeping API.
type IncomeItem struct {
	ID           string            `json:"id"`
	Number       FlexString        `json:"number"`
	Type         int               `json:"type"`
	DocumentDate string            `json:"documentDate"`
	Remarks      string            `json:"remarks"`
	URL          map[string]string `json:"url,omitempty"`
}

// Page is one page of a search response. Items is a pointer so that a
// response without the key can be told apart from an empty result.
type Page[T any] struct {
	Items    *[]T `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	Pages    int  `json:"pages"`
}

// FlexString accepts both JSON strings and numbers. Document numbers come
// back as either, depending on the endpoint.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("document number %s is neither string nor number", data)
	}
	*f = FlexString(data)
	return nil
}

// ToRecord converts the wire item into the domain record.
func (e ExpenseItem) ToRecord() (core.ExpenseRecord, error) {
	if e.Supplier == nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: expense %q has no supplier", ErrMalformedResponse, e.ID)
	}
	d, err := parseDocumentDate(e.DocumentDate)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %q: %w", e.ID, err)
	}
	return core.ExpenseRecord{
		ID:           e.ID,
		Date:         d,
		SupplierName: e.Supplier.Name,
		Amount:       e.Amount,
		DocumentURL:  strings.TrimSpace(e.URL),
	}, nil
}

// ToRecord converts the wire item into the domain record.
func (i IncomeItem) ToRecord() (core.IncomeRecord, error) {
	d, err := parseDocumentDate(i.DocumentDate)
	if err != nil {
		return core.IncomeRecord{}, fmt.Errorf("income %q: %w", i.ID, err)
	}
	var urls map[string]string
	if len(i.URL) > 0 {
		urls = make(map[string]string, len(i.URL))
		for lang, u := range i.URL {
			urls[lang] = u
		}
	}
	return core.IncomeRecord{
		ID:      i.ID,
		Number:  strings.TrimSpace(string(i.Number)),
		Type:    core.DocumentType(i.Type),
		Date:    d,
		Remarks: i.Remarks,
		URLs:    urls,
	}, nil
}

// ExpenseRecords converts a batch of wire items, failing on the first bad one.
func ExpenseRecords(items []ExpenseItem) ([]core.ExpenseRecord, error) {
	out := make([]core.ExpenseRecord, 0, len(items))
	for _, it := range items {
		r, err := it.ToRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// IncomeRecords converts a batch of wire items, failing on the first bad one.
func IncomeRecords(items []IncomeItem) ([]core.IncomeRecord, error) {
	out := make([]core.IncomeRecord, 0, len(items))
	for _, it := range items {
		r, err := it.ToRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func parseDocumentDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid documentDate %q", s)
	}
	return core.DateOf(t), nil
}
