package http

import (
	"context"
	"net/http"
	"time"

	"rendiconto/internal/core"
	applog "rendiconto/internal/log"
	"rendiconto/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

type periodResponse struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Label    string `json:"label"`
	Bimester int    `json:"bimester"`
}

type supplierTotalResponse struct {
	Supplier string `json:"supplier"`
	Total    string `json:"total"`
}

type checkResponse struct {
	Period       periodResponse          `json:"period"`
	ExpenseCount int                     `json:"expense_count"`
	Clean        bool                    `json:"clean"`
	Missing      []string                `json:"missing"`
	Short        []string                `json:"short"`
	Undocumented []supplierTotalResponse `json:"undocumented"`
	Cached       bool                    `json:"cached,omitempty"`
}

type reportResponse struct {
	checkResponse
	DeliveryID  string   `json:"delivery_id"`
	Attachments []string `json:"attachments"`
	Unpaired    int      `json:"unpaired_receipts"`
	Unparsable  int      `json:"unparsable_remarks"`
	Dropped     int      `json:"dropped_invoices"`
	Shared      bool     `json:"shared"`
}

func newPeriodResponse(p core.ReportingPeriod) periodResponse {
	return periodResponse{
		Start:    p.FromDate(),
		End:      p.ToDate(),
		Label:    p.Label(),
		Bimester: p.Bimester(),
	}
}

func newCheckResponse(res services.CheckResult) checkResponse {
	out := checkResponse{
		Period:       newPeriodResponse(res.Period),
		ExpenseCount: res.ExpenseCount,
		Clean:        res.Reconciliation.Clean(),
		Missing:      append([]string{}, res.Reconciliation.Missing...),
		Short:        append([]string{}, res.Reconciliation.Short...),
		Undocumented: make([]supplierTotalResponse, 0, len(res.Undocumented)),
	}
	for _, t := range res.Undocumented {
		out.Undocumented = append(out.Undocumented, supplierTotalResponse{
			Supplier: t.Supplier,
			Total:    t.Total.StringFixed(2),
		})
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, s.svc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newPeriodResponse(period))
}

// handleCheck serves recent results from memory; ?fresh=1 forces a refetch.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := parsePeriod(r, s.svc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := period.Key()
	res, cached := s.checks.Get(key)
	if !cached || r.URL.Query().Get("fresh") == "1" {
		res, err = s.svc.Check(ctx, period)
		if err != nil {
			applog.FromContext(ctx).LogError(ctx, "Check failed", err, applog.OpCheck,
				applog.NewFields().WithPeriod(period.FromDate(), period.ToDate()))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.checks.Set(key, res)
		cached = false
	}
	out := newCheckResponse(res)
	out.Cached = cached
	writeJSON(w, http.StatusOK, out)
}

// handleReport sends the period's report. Concurrent requests for the same
// period share one run and one email.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period, err := parsePeriod(r, s.svc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A client hanging up must not abort a half-delivered report.
	runCtx := context.WithoutCancel(ctx)
	v, err, shared := s.sends.Do(period.Key(), func() (any, error) {
		return s.svc.Send(runCtx, period)
	})
	if err != nil {
		applog.FromContext(ctx).LogError(ctx, "Report failed", err, applog.OpSend,
			applog.NewFields().WithPeriod(period.FromDate(), period.ToDate()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	res := v.(services.SendResult)
	s.checks.Delete(period.Key())
	writeJSON(w, http.StatusOK, reportResponse{
		checkResponse: newCheckResponse(res.CheckResult),
		DeliveryID:    res.DeliveryID,
		Attachments:   append([]string{}, res.Attachments...),
		Unpaired:      res.Unpaired,
		Unparsable:    res.Unparsable,
		Dropped:       res.Dropped,
		Shared:        shared,
	})
}
