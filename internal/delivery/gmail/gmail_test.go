package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rendiconto/internal/delivery"
)

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{ClientJSON: []byte("invalid-json"), TokenJSON: []byte(`{"access_token":"x"}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth config")
}

func TestSend(t *testing.T) {
	var gotRaw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, err := base64.URLEncoding.DecodeString(body.Raw)
		require.NoError(t, err)
		gotRaw = raw
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-123","threadId":"t-1"}`))
	}))
	defer srv.Close()

	s, err := NewWithHTTPClient(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)

	id, err := s.Send(context.Background(), delivery.Message{
		From:    "me@example.com",
		To:      []string{"acc@example.com"},
		Subject: "report",
		Body:    "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)

	parsed, err := mail.ReadMessage(bytes.NewReader(gotRaw))
	require.NoError(t, err)
	assert.Contains(t, parsed.Header.Get("To"), "acc@example.com")
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient scope"}}`))
	}))
	defer srv.Close()

	s, err := NewWithHTTPClient(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)

	_, err = s.Send(context.Background(), delivery.Message{From: "me@example.com", To: []string{"a@example.com"}})
	assert.Error(t, err)
}
