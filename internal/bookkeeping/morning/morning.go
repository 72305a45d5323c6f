// Package morning talks to the Morning (Green Invoice) bookkeeping API.
package morning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"rendiconto/internal/bookkeeping"
	"rendiconto/internal/core"
	applog "rendiconto/internal/log"
)

const (
	defaultPageSize = 100
	maxPages        = 1000
	maxBodyBytes    = 32 << 20
)

// Config holds the endpoints and credentials of a Morning account.
type Config struct {
	TokenURL   string
	APIKeyID   string
	Secret     string
	IncomeURL  string
	ExpenseURL string
	PageSize   int
}

type Client struct {
	cfg  Config
	http *http.Client
}

// Ensure interface conformance
var _ bookkeeping.Client = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	var missing []string
	for name, v := range map[string]string{
		"token url":   cfg.TokenURL,
		"api key id":  cfg.APIKeyID,
		"secret":      cfg.Secret,
		"income url":  cfg.IncomeURL,
		"expense url": cfg.ExpenseURL,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("morning client: missing %s", strings.Join(missing, ", "))
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	c := &Client{cfg: cfg, http: newHTTPClientWithPooling()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// APIError carries a non-2xx answer from the API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("morning %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

type searchRequest struct {
	FromDate string `json:"fromDate,omitempty"`
	ToDate   string `json:"toDate,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// FetchExpenses returns the expenses of the period.
func (c *Client) FetchExpenses(ctx context.Context, period core.ReportingPeriod) ([]core.ExpenseRecord, error) {
	items, err := fetchAll[bookkeeping.ExpenseItem](ctx, c, c.cfg.ExpenseURL, &period)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	recs, err := bookkeeping.ExpenseRecords(items)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentBookkeeping).InfoContext(ctx, "Fetched expenses",
		applog.FieldPeriodStart, period.FromDate(),
		applog.FieldPeriodEnd, period.ToDate(),
		applog.FieldCount, len(recs))
	return recs, nil
}

// FetchIncomes returns the income documents of the period. With allRecords
// the date filter is omitted and the whole ledger is returned.
func (c *Client) FetchIncomes(ctx context.Context, period core.ReportingPeriod, allRecords bool) ([]core.IncomeRecord, error) {
	filter := &period
	if allRecords {
		filter = nil
	}
	items, err := fetchAll[bookkeeping.IncomeItem](ctx, c, c.cfg.IncomeURL, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch incomes: %w", err)
	}
	recs, err := bookkeeping.IncomeRecords(items)
	if err != nil {
		return nil, fmt.Errorf("fetch incomes: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentBookkeeping).InfoContext(ctx, "Fetched incomes",
		applog.FieldPeriodStart, period.FromDate(),
		applog.FieldPeriodEnd, period.ToDate(),
		"all_records", allRecords,
		applog.FieldCount, len(recs))
	return recs, nil
}

// authorizedClient returns a client that obtains one bearer token per call
// and reuses it for every page of that call.
func (c *Client) authorizedClient(ctx context.Context) *http.Client {
	src := &tokenSource{
		ctx:    ctx,
		client: c.http,
		url:    c.cfg.TokenURL,
		id:     c.cfg.APIKeyID,
		secret: c.cfg.Secret,
	}
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), src)
}

func fetchAll[T any](ctx context.Context, c *Client, endpoint string, period *core.ReportingPeriod) ([]T, error) {
	hc := c.authorizedClient(ctx)
	var out []T
	for page := 1; ; page++ {
		req := searchRequest{Page: page, PageSize: c.cfg.PageSize}
		if period != nil {
			req.FromDate = period.FromDate()
			req.ToDate = period.ToDate()
		}
		var res bookkeeping.Page[T]
		if err := postJSON(ctx, hc, endpoint, req, &res); err != nil {
			return nil, err
		}
		if res.Items == nil {
			return nil, fmt.Errorf("%w: %s: missing items", bookkeeping.ErrMalformedResponse, endpoint)
		}
		out = append(out, *res.Items...)
		if page >= res.Pages {
			return out, nil
		}
		if page >= maxPages {
			return nil, fmt.Errorf("%s: more than %d pages", endpoint, maxPages)
		}
	}
}

func postJSON(ctx context.Context, hc *http.Client, endpoint string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", bookkeeping.ErrMalformedResponse, endpoint, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}
