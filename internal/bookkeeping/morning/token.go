package morning

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"rendiconto/internal/bookkeeping"
)

type tokenRequest struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// tokenSource exchanges the API key pair for a bearer token.
type tokenSource struct {
	ctx    context.Context
	client *http.Client
	url    string
	id     string
	secret string
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	var tr tokenResponse
	if err := postJSON(s.ctx, s.client, s.url, tokenRequest{ID: s.id, Secret: s.secret}, &tr); err != nil {
		return nil, fmt.Errorf("obtain token: %w", err)
	}
	if tr.Token == "" {
		return nil, fmt.Errorf("obtain token: %w: empty token", bookkeeping.ErrMalformedResponse)
	}
	tok := &oauth2.Token{AccessToken: tr.Token, TokenType: "Bearer"}
	if tr.Expires > 0 {
		tok.Expiry = time.Unix(tr.Expires, 0)
	}
	return tok, nil
}
