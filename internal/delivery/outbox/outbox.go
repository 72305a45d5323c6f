// Package outbox writes reports as .eml files instead of sending them.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rendiconto/internal/delivery"
	applog "rendiconto/internal/log"
)

type Sender struct {
	dir string
	now func() time.Time
}

// Ensure interface conformance
var _ delivery.Sender = (*Sender)(nil)

// New creates dir if needed.
func New(dir string) (*Sender, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("outbox: missing directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("outbox dir: %w", err)
	}
	return &Sender{dir: dir, now: time.Now}, nil
}

// Send writes msg to a new file and returns its path.
func (s *Sender) Send(ctx context.Context, msg delivery.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, id, err := delivery.Render(msg)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.eml", s.now().UTC().Format("20060102T150405Z"), sanitize(id))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, raw, 0o640); err != nil {
		return "", fmt.Errorf("write outbox file: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentDelivery).InfoContext(ctx, "Report written to outbox",
		applog.FieldDeliveryID, path)
	return path, nil
}

func sanitize(id string) string {
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	if len(id) > 64 {
		id = id[:64]
	}
	if id == "" {
		id = "message"
	}
	return id
}
