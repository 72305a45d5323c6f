// Package gmail delivers reports through the Gmail API using the OAuth user
// token produced by cmd/oauth-init.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"

	"rendiconto/internal/delivery"
	applog "rendiconto/internal/log"
)

// Config carries the OAuth client and token JSON documents.
type Config struct {
	ClientJSON []byte
	TokenJSON  []byte
	// User is the mailbox to send from; "me" when empty.
	User string
}

type Sender struct {
	svc  *gmailapi.Service
	user string
}

// Ensure interface conformance
var _ delivery.Sender = (*Sender)(nil)

// New builds a sender from OAuth credentials. The token is refreshed
// automatically when it expires.
func New(ctx context.Context, cfg Config) (*Sender, error) {
	if len(cfg.ClientJSON) == 0 || len(cfg.TokenJSON) == 0 {
		return nil, errors.New("gmail: missing oauth client or token")
	}
	oc, err := google.ConfigFromJSON(cfg.ClientJSON, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(cfg.TokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	svc, err := gmailapi.NewService(ctx, goption.WithHTTPClient(oc.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return newSender(svc, cfg.User), nil
}

// NewWithHTTPClient talks to endpoint with hc. Used against fake servers.
func NewWithHTTPClient(ctx context.Context, hc *http.Client, endpoint string) (*Sender, error) {
	svc, err := gmailapi.NewService(ctx,
		goption.WithHTTPClient(hc),
		goption.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return newSender(svc, ""), nil
}

func newSender(svc *gmailapi.Service, user string) *Sender {
	if user == "" {
		user = "me"
	}
	return &Sender{svc: svc, user: user}
}

// Send uploads the raw message and returns the Gmail message id.
func (s *Sender) Send(ctx context.Context, msg delivery.Message) (string, error) {
	raw, _, err := delivery.Render(msg)
	if err != nil {
		return "", err
	}
	out, err := s.svc.Users.Messages.Send(s.user, &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentDelivery).InfoContext(ctx, "Report sent via Gmail",
		applog.FieldDeliveryID, out.Id, "to", msg.To)
	return out.Id, nil
}
