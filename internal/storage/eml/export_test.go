package eml

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

func sampleMessage() *domain.EmailMessage {
	return &domain.EmailMessage{
		ID:        "msg-1",
		MessageID: "<msg1@example.com>",
		Subject:   "Weekly digest",
		From:      domain.EmailAddress{Name: "Digest Bot", Address: "digest@example.com"},
		To: []domain.EmailAddress{
			{Name: "Me", Address: "me@outlook.com"},
		},
		TextBody:   "Nothing happened this week.",
		ReceivedAt: time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC),
		Account:    "personal",
		Provider:   domain.ProviderMicrosoft,
	}
}

func TestWrite_Headers(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, sampleMessage()))

	out := buf.String()
	assert.Contains(t, out, "Subject: Weekly digest")
	assert.Contains(t, out, "digest@example.com")
	assert.Contains(t, out, "me@outlook.com")
	assert.Contains(t, out, "Message-Id: <msg1@example.com>")
	assert.Contains(t, out, "Nothing happened this week.")
}

func TestWrite_HTMLBody(t *testing.T) {
	msg := sampleMessage()
	msg.TextBody = ""
	msg.HTMLBody = "<h1>Digest</h1>"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, msg))

	out := buf.String()
	assert.Contains(t, out, "text/html")
	assert.Contains(t, out, "<h1>Digest</h1>")
}

func TestWrite_RoundTripWithAttachment(t *testing.T) {
	msg := sampleMessage()
	msg.Attachments = []domain.Attachment{
		{Filename: "notes.txt", ContentType: "text/plain", Content: []byte("attachment body")},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, msg))

	mr, err := mail.CreateReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Weekly digest", subject)

	var sawBody, sawAttachment bool
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			body, err := io.ReadAll(part.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "Nothing happened")
			sawBody = true
		case *mail.AttachmentHeader:
			filename, err := h.Filename()
			require.NoError(t, err)
			assert.Equal(t, "notes.txt", filename)

			content, err := io.ReadAll(part.Body)
			require.NoError(t, err)
			assert.Equal(t, "attachment body", strings.TrimSpace(string(content)))
			sawAttachment = true
		}
	}

	assert.True(t, sawBody, "expected an inline body part")
	assert.True(t, sawAttachment, "expected an attachment part")
}
