package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"rendiconto/internal/core"
	"rendiconto/internal/delivery"
	applog "rendiconto/internal/log"
	"rendiconto/internal/pdf"
	"rendiconto/internal/report"
)

const (
	IncomeFilename   = "income.pdf"
	ExpensesFilename = "expenses.pdf"
)

// DocumentFetcher downloads a document. ok is false when the document was
// skipped.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, ok bool, err error)
}

// MergeFunc concatenates PDF documents.
type MergeFunc func(docs [][]byte) ([]byte, error)

type ComposerConfig struct {
	From          string
	To            []string
	Cc            []string
	Language      string
	Greeting      string
	Signature     string
	AttachSummary bool
}

// Composer turns one period's data into the accountant email.
type Composer struct {
	cfg     ComposerConfig
	fetcher DocumentFetcher
	merge   MergeFunc
	body    *template.Template
}

// Draft is the input of Compose.
type Draft struct {
	Period         core.ReportingPeriod
	Expenses       []core.ExpenseRecord
	Income         []core.IncomeRecord
	Reconciliation core.ReconciliationResult
	Undocumented   []core.SupplierTotal
}

var bodyTemplate = template.Must(template.New("body").Parse(`{{.Greeting}}

מצ"ב הדו"ח התקופתי עבור {{.Period}}.
{{- if .Summary}}
בנוסף להוצאות הכלולות בקובץ היו הוצאות נוספות כלהלן:

{{.Summary}}
{{- end}}

בברכה
{{- if .Signature}}

{{.Signature}}
{{- end}}
`))

func NewComposer(cfg ComposerConfig, fetcher DocumentFetcher, merge MergeFunc) *Composer {
	if cfg.Language == "" {
		cfg.Language = "he"
	}
	if merge == nil {
		merge = pdf.Merge
	}
	return &Composer{cfg: cfg, fetcher: fetcher, merge: merge, body: bodyTemplate}
}

// Subject is the email subject for period.
func Subject(period core.ReportingPeriod) string {
	return "Income and Expenditure for " + period.Label()
}

// Body renders the email text.
func (c *Composer) Body(period core.ReportingPeriod, undocumented []core.SupplierTotal) (string, error) {
	var b strings.Builder
	err := c.body.Execute(&b, struct {
		Greeting, Period, Summary, Signature string
	}{
		Greeting:  c.cfg.Greeting,
		Period:    period.Label(),
		Summary:   FormatSummary(undocumented),
		Signature: c.cfg.Signature,
	})
	if err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return b.String(), nil
}

// Compose downloads and merges the documents and builds the message.
// Attachments are income.pdf, expenses.pdf and, when enabled, summary.xlsx;
// a PDF with no documents behind it is left out.
func (c *Composer) Compose(ctx context.Context, d Draft) (delivery.Message, error) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentComposer)

	var incomeURLs []string
	for _, r := range d.Income {
		u, ok := r.URL(c.cfg.Language)
		if !ok {
			logger.WarnContext(ctx, "Income document has no link for language",
				applog.FieldDocumentNumber, r.Number, "language", c.cfg.Language)
			continue
		}
		incomeURLs = append(incomeURLs, u)
	}

	var expenseURLs []string
	for _, e := range d.Expenses {
		if e.Documented() {
			expenseURLs = append(expenseURLs, e.DocumentURL)
		}
	}

	var attachments []delivery.Attachment
	for _, part := range []struct {
		name string
		urls []string
	}{
		{IncomeFilename, incomeURLs},
		{ExpensesFilename, expenseURLs},
	} {
		a, ok, err := c.mergedAttachment(ctx, part.name, part.urls)
		if err != nil {
			return delivery.Message{}, err
		}
		if ok {
			attachments = append(attachments, a)
		}
	}

	if c.cfg.AttachSummary {
		b, err := report.BuildWorkbook(report.Summary{
			Period:         d.Period,
			Reconciliation: d.Reconciliation,
			Undocumented:   d.Undocumented,
		})
		if err != nil {
			return delivery.Message{}, err
		}
		attachments = append(attachments, delivery.Attachment{
			Filename:    report.SummaryFilename,
			ContentType: report.SummaryContentType,
			Data:        b,
		})
	}

	body, err := c.Body(d.Period, d.Undocumented)
	if err != nil {
		return delivery.Message{}, err
	}

	return delivery.Message{
		From:        c.cfg.From,
		To:          c.cfg.To,
		Cc:          c.cfg.Cc,
		Subject:     Subject(d.Period),
		Body:        body,
		Attachments: attachments,
	}, nil
}

func (c *Composer) mergedAttachment(ctx context.Context, name string, urls []string) (delivery.Attachment, bool, error) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentComposer)

	docs := make([][]byte, 0, len(urls))
	for _, u := range urls {
		b, ok, err := c.fetcher.Fetch(ctx, u)
		if err != nil {
			return delivery.Attachment{}, false, fmt.Errorf("%s: %w", name, err)
		}
		if ok {
			docs = append(docs, b)
		}
	}

	merged, err := c.merge(docs)
	if errors.Is(err, pdf.ErrNothingToMerge) {
		logger.InfoContext(ctx, "No documents, attachment omitted", applog.FieldAttachment, name)
		return delivery.Attachment{}, false, nil
	}
	if err != nil {
		return delivery.Attachment{}, false, fmt.Errorf("%s: %w", name, err)
	}

	logger.InfoContext(ctx, "Merged documents",
		applog.FieldAttachment, name,
		applog.FieldCount, len(docs),
		"skipped", len(urls)-len(docs))
	return delivery.Attachment{Filename: name, ContentType: delivery.ContentTypePDF, Data: merged}, true, nil
}
