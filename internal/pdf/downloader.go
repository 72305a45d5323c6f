// Package pdf downloads bill and income documents and merges them into a
// single file.
package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	applog "rendiconto/internal/log"
)

// maxDocumentBytes is a var so tests can lower it.
var maxDocumentBytes = 50 << 20

// Downloader fetches documents by URL. Links are pre-signed by the
// bookkeeping service and need no credentials.
type Downloader struct {
	client *http.Client
}

func NewDownloader(client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Downloader{client: client}
}

// Fetch downloads url. A non-2xx answer, a payload over the size limit or
// one that is not a PDF is reported as skipped (ok == false) without error;
// transport failures are returned.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, bool, error) {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentPDF)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WarnContext(ctx, "Skipping document, download failed",
			applog.FieldURL, url, applog.FieldStatusCode, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxDocumentBytes)+1))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", url, err)
	}
	if len(content) > maxDocumentBytes {
		logger.WarnContext(ctx, "Skipping document, too large",
			applog.FieldURL, url, "limit_bytes", maxDocumentBytes)
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	}

	mt := mimetype.Detect(content)
	if !mt.Is("application/pdf") {
		logger.WarnContext(ctx, "Skipping document, not a PDF",
			applog.FieldURL, url, "detected", mt.String(), "size", len(content))
		return nil, false, nil
	}
	return content, true, nil
}
