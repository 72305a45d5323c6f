// Package delivery defines the email handed to a delivery backend and
// renders it as a MIME message.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

const (
	ContentTypePDF = "application/pdf"
)

// Sender delivers a message and returns a backend specific identifier:
// a Gmail message id, a Message-ID header or a file path.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

func (m Message) Validate() error {
	var errs []error
	if strings.TrimSpace(m.From) == "" {
		errs = append(errs, errors.New("missing sender"))
	}
	if len(m.To) == 0 {
		errs = append(errs, errors.New("missing recipient"))
	}
	for _, a := range m.Attachments {
		if strings.TrimSpace(a.Filename) == "" {
			errs = append(errs, errors.New("attachment without filename"))
		}
	}
	return errors.Join(errs...)
}

// Build assembles the MIME message. Message-ID and Date are set.
func Build(m Message) (*mail.Msg, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("sender %q: %w", m.From, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	if len(m.Cc) > 0 {
		if err := msg.Cc(m.Cc...); err != nil {
			return nil, fmt.Errorf("cc: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	msg.SetMessageID()
	msg.SetDate()

	for _, a := range m.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := msg.AttachReader(a.Filename, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return msg, nil
}

// Render returns the RFC 822 bytes of m and its Message-ID.
func Render(m Message) ([]byte, string, error) {
	msg, err := Build(m)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, "", fmt.Errorf("render message: %w", err)
	}
	return buf.Bytes(), MessageID(msg), nil
}

// MessageID returns the Message-ID header of msg without angle brackets.
func MessageID(msg *mail.Msg) string {
	ids := msg.GetGenHeader(mail.HeaderMessageID)
	if len(ids) == 0 {
		return ""
	}
	return strings.Trim(ids[0], "<>")
}
