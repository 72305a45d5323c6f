package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rendiconto/internal/core"
)

var errBadPeriodQuery = errors.New("year and bimester must be given together")

// parsePeriod resolves the period of a request: ?date=YYYY-MM-DD, or
// ?year=&bimester=, or today when neither is present.
func parsePeriod(r *http.Request, svc ReportRunner) (core.ReportingPeriod, error) {
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("date")); v != "" {
		ref, err := core.ParseReferenceDate(v)
		if err != nil {
			return core.ReportingPeriod{}, err
		}
		return svc.Period(&ref), nil
	}

	year := strings.TrimSpace(q.Get("year"))
	bimester := strings.TrimSpace(q.Get("bimester"))
	switch {
	case year == "" && bimester == "":
		return svc.Period(nil), nil
	case year == "" || bimester == "":
		return core.ReportingPeriod{}, errBadPeriodQuery
	}

	y, err := strconv.Atoi(year)
	if err != nil || y < 2000 || y > 9999 {
		return core.ReportingPeriod{}, fmt.Errorf("invalid year %q", year)
	}
	b, err := strconv.Atoi(bimester)
	if err != nil {
		return core.ReportingPeriod{}, fmt.Errorf("%w: got %q", core.ErrInvalidBimester, bimester)
	}
	return core.PeriodForBimester(y, b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
