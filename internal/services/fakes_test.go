package services

import (
	"bytes"
	"context"
	"errors"

	"rendiconto/internal/amqp"
	"rendiconto/internal/core"
	"rendiconto/internal/delivery"
	"rendiconto/internal/pdf"
)

type fakeFetcher struct {
	docs    map[string][]byte
	fail    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, bool, error) {
	f.fetched = append(f.fetched, url)
	if err := f.fail[url]; err != nil {
		return nil, false, err
	}
	b, ok := f.docs[url]
	return b, ok, nil
}

// joinMerge stands in for pdf.Merge: it concatenates with "|".
func joinMerge(docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, pdf.ErrNothingToMerge
	}
	return bytes.Join(docs, []byte("|")), nil
}

type fakeBooks struct {
	expenses    []core.ExpenseRecord
	period      []core.IncomeRecord
	ledger      []core.IncomeRecord
	expenseErr  error
	incomeErr   error
	ledgerCalls int
}

func (f *fakeBooks) FetchExpenses(context.Context, core.ReportingPeriod) ([]core.ExpenseRecord, error) {
	return f.expenses, f.expenseErr
}

func (f *fakeBooks) FetchIncomes(_ context.Context, _ core.ReportingPeriod, all bool) ([]core.IncomeRecord, error) {
	if all {
		f.ledgerCalls++
		return f.ledger, nil
	}
	return f.period, f.incomeErr
}

type fakeSender struct {
	sent []delivery.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg delivery.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

type fakePublisher struct {
	msgs []*amqp.ReportDeliveredMessage
	err  error
}

func (f *fakePublisher) PublishReportDelivered(_ context.Context, msg *amqp.ReportDeliveredMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

var errBoom = errors.New("boom")
