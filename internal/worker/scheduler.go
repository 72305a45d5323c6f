// Package worker runs the unattended report delivery.
package worker

import (
	"context"
	"sync"
	"time"

	"rendiconto/internal/core"
	applog "rendiconto/internal/log"
	"rendiconto/internal/services"
)

// ReportSender is the slice of the report service the scheduler drives.
type ReportSender interface {
	Period(ref *time.Time) core.ReportingPeriod
	Send(ctx context.Context, period core.ReportingPeriod) (services.SendResult, error)
}

// Scheduler sends the report of a just closed period on SendDay of the
// month that follows it. What went out is remembered in memory only, so a
// restart on the send day sends again.
type Scheduler struct {
	svc      ReportSender
	interval time.Duration
	sendDay  int
	loc      *time.Location
	logger   *applog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent string
}

func NewScheduler(svc ReportSender, interval time.Duration, sendDay int, loc *time.Location, logger *applog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentScheduler)
	}
	return &Scheduler{
		svc:      svc,
		interval: interval,
		sendDay:  sendDay,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Run checks once at startup and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Report scheduler started",
		"interval", s.interval,
		"send_day", s.sendDay)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Report scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	sent, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.LogError(ctx, "Scheduled report failed", err, applog.OpSend, nil)
		return
	}
	if sent {
		s.logger.Info("Scheduled report delivered",
			"next_check", s.now().Add(s.interval).In(s.loc).Format(time.DateTime))
	}
}

// RunOnce sends the due period's report unless this scheduler already did.
// It reports whether a report was sent. A failed send is retried on the
// next tick.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	now := s.now().In(s.loc)
	period := s.svc.Period(&now)

	today := core.DateOf(now)
	if !today.After(period.End.Time) {
		s.logger.Debug("Period still open", applog.FieldPeriodEnd, period.ToDate())
		return false, nil
	}
	// The lookback also resolves early days of an even month to a period
	// that closed over a month ago; that one was due last month.
	due := period.End.AddDate(0, 0, 1)
	if today.Year() != due.Year() || today.Month() != int(due.Month()) {
		s.logger.Debug("Period was due last month", applog.FieldPeriodEnd, period.ToDate())
		return false, nil
	}
	if today.Day() != s.sendDay {
		s.logger.Debug("Not the send day", "day", today.Day(), "send_day", s.sendDay)
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSent == period.Key() {
		return false, nil
	}

	logger := s.logger.With(applog.FieldPeriodStart, period.FromDate(), applog.FieldPeriodEnd, period.ToDate())
	logger.Info("Sending scheduled report")
	if _, err := s.svc.Send(applog.WithContext(ctx, logger), period); err != nil {
		return false, err
	}
	s.lastSent = period.Key()
	return true, nil
}
