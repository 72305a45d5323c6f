package services

import (
	"context"
	"fmt"
	"time"

	"rendiconto/internal/amqp"
	"rendiconto/internal/bookkeeping"
	"rendiconto/internal/core"
	"rendiconto/internal/delivery"
	applog "rendiconto/internal/log"
)

// EventPublisher announces delivered reports.
type EventPublisher interface {
	PublishReportDelivered(ctx context.Context, msg *amqp.ReportDeliveredMessage) error
}

// CheckResult is the reconciliation of one period's expenses.
type CheckResult struct {
	Period         core.ReportingPeriod
	ExpenseCount   int
	Reconciliation core.ReconciliationResult
	Undocumented   []core.SupplierTotal
}

// SendResult describes a delivered report.
type SendResult struct {
	CheckResult
	DeliveryID  string
	Attachments []string
	Unpaired    int
	Unparsable  int
	Dropped     int
}

// ReportService runs one report: fetch, reconcile, organize, compose, send.
type ReportService struct {
	books    bookkeeping.Client
	table    core.ExpectationTable
	composer *Composer
	sender   delivery.Sender
	events   EventPublisher
	loc      *time.Location
	now      func() time.Time
}

// NewReportService wires a service. events may be nil.
func NewReportService(books bookkeeping.Client, table core.ExpectationTable, composer *Composer, sender delivery.Sender, events EventPublisher, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		books:    books,
		table:    table,
		composer: composer,
		sender:   sender,
		events:   events,
		loc:      loc,
		now:      time.Now,
	}
}

// Period returns the reporting period for ref, or for today in the
// service's time zone when ref is nil.
func (s *ReportService) Period(ref *time.Time) core.ReportingPeriod {
	if ref != nil {
		return core.ReportingPeriodFor(*ref)
	}
	return core.ReportingPeriodFor(s.now().In(s.loc))
}

// Check fetches the period's expenses and reconciles them.
func (s *ReportService) Check(ctx context.Context, period core.ReportingPeriod) (CheckResult, error) {
	expenses, err := s.books.FetchExpenses(ctx, period)
	if err != nil {
		return CheckResult{}, fmt.Errorf("check %s: %w", period.Key(), err)
	}
	return s.check(period, expenses), nil
}

func (s *ReportService) check(period core.ReportingPeriod, expenses []core.ExpenseRecord) CheckResult {
	return CheckResult{
		Period:         period,
		ExpenseCount:   len(expenses),
		Reconciliation: Reconcile(expenses, s.table),
		Undocumented:   SumUndocumented(expenses),
	}
}

// Send composes the period's report and delivers it.
func (s *ReportService) Send(ctx context.Context, period core.ReportingPeriod) (SendResult, error) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentReport).
		With(applog.FieldPeriodStart, period.FromDate(), applog.FieldPeriodEnd, period.ToDate())
	ctx = applog.WithContext(ctx, logger)

	logger.InfoContext(ctx, "Building report")

	expenses, err := s.books.FetchExpenses(ctx, period)
	if err != nil {
		return SendResult{}, fmt.Errorf("send %s: %w", period.Key(), err)
	}
	incomes, err := s.books.FetchIncomes(ctx, period, false)
	if err != nil {
		return SendResult{}, fmt.Errorf("send %s: %w", period.Key(), err)
	}

	organized, err := OrganizeIncome(ctx, incomes, func(ctx context.Context) ([]core.IncomeRecord, error) {
		return s.books.FetchIncomes(ctx, period, true)
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("send %s: %w", period.Key(), err)
	}

	chk := s.check(period, expenses)
	if !chk.Reconciliation.Clean() {
		logger.WarnContext(ctx, "Expected bills are missing",
			"missing", chk.Reconciliation.Missing,
			"short", chk.Reconciliation.Short)
	}

	msg, err := s.composer.Compose(ctx, Draft{
		Period:         period,
		Expenses:       expenses,
		Income:         organized.Documents,
		Reconciliation: chk.Reconciliation,
		Undocumented:   chk.Undocumented,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("send %s: compose: %w", period.Key(), err)
	}

	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		return SendResult{}, fmt.Errorf("send %s: deliver: %w", period.Key(), err)
	}
	logger.InfoContext(ctx, "Report delivered", applog.FieldDeliveryID, id)

	s.publish(ctx, period, id, chk.Reconciliation)

	res := SendResult{
		CheckResult: chk,
		DeliveryID:  id,
		Unpaired:    len(organized.Unpaired),
		Unparsable:  len(organized.Unparsable),
		Dropped:     len(organized.Dropped),
	}
	for _, a := range msg.Attachments {
		res.Attachments = append(res.Attachments, a.Filename)
	}
	return res, nil
}

func (s *ReportService) publish(ctx context.Context, period core.ReportingPeriod, id string, rec core.ReconciliationResult) {
	if s.events == nil {
		return
	}
	msg := amqp.NewReportDeliveredMessage(period, id, rec)
	if err := s.events.PublishReportDelivered(ctx, msg); err != nil {
		// The email is out; a lost event must not fail the run.
		applog.FromContext(ctx).LogError(ctx, "Failed to publish report delivered message", err, applog.OpPublish, nil)
	}
}
