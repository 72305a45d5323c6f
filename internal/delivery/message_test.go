package delivery

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() Message {
	return Message{
		From:    "me@example.com",
		To:      []string{"accountant@example.com"},
		Cc:      []string{"partner@example.com"},
		Subject: "Income and Expenditure for March-April, 2025",
		Body:    "Hi,\n\nParking: 13\n",
		Attachments: []Attachment{
			{Filename: "expenses.pdf", ContentType: ContentTypePDF, Data: []byte("%PDF-1.4 expenses")},
			{Filename: "income.pdf", ContentType: ContentTypePDF, Data: []byte("%PDF-1.4 income")},
		},
	}
}

func TestRender(t *testing.T) {
	raw, id, err := Render(sampleMessage())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Income and Expenditure for March-April, 2025", subject)
	assert.Contains(t, parsed.Header.Get("To"), "accountant@example.com")
	assert.Contains(t, parsed.Header.Get("Cc"), "partner@example.com")
	assert.Contains(t, parsed.Header.Get("Message-Id"), id)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var filenames []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if fn := p.FileName(); fn != "" {
			filenames = append(filenames, fn)
			assert.True(t, strings.HasPrefix(p.Header.Get("Content-Type"), ContentTypePDF))
		}
	}
	assert.Equal(t, []string{"expenses.pdf", "income.pdf"}, filenames)
}

func TestRender_NoAttachments(t *testing.T) {
	m := sampleMessage()
	m.Attachments = nil
	m.Cc = nil
	raw, _, err := Render(m)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Empty(t, parsed.Header.Get("Cc"))
}

func TestMessageValidate(t *testing.T) {
	err := Message{Attachments: []Attachment{{}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing sender")
	assert.Contains(t, err.Error(), "missing recipient")
	assert.Contains(t, err.Error(), "attachment without filename")

	_, _, err = Render(Message{From: "not an address", To: []string{"a@example.com"}})
	assert.Error(t, err)
}
