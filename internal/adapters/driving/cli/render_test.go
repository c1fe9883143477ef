package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

func renderedMessage() *domain.EmailMessage {
	return &domain.EmailMessage{
		ID:      "AAMkAD-1",
		Subject: "Quarterly report",
		From:    domain.EmailAddress{Name: "Alex", Address: "alex@example.com"},
		To: []domain.EmailAddress{
			{Address: "me@outlook.com"},
		},
		TextBody:   "Report attached.\nRegards",
		ReceivedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Attachments: []domain.Attachment{
			{Filename: "q2.pdf"},
		},
	}
}

func TestRenderMessage(t *testing.T) {
	out := renderMessage(renderedMessage())

	assert.Contains(t, out, "Quarterly report")
	assert.Contains(t, out, "Alex <alex@example.com>")
	assert.Contains(t, out, "me@outlook.com")
	assert.Contains(t, out, "AAMkAD-1")
	assert.Contains(t, out, "q2.pdf")
	assert.Contains(t, out, "Report attached.")
}

func TestRenderMessage_NoSubject(t *testing.T) {
	msg := renderedMessage()
	msg.Subject = ""

	assert.Contains(t, renderMessage(msg), "(no subject)")
}

func TestRenderMessage_HTMLBodyNotInlined(t *testing.T) {
	msg := renderedMessage()
	msg.TextBody = ""
	msg.HTMLBody = "<p>Report attached.</p>"

	out := renderMessage(msg)

	assert.NotContains(t, out, "<p>")
	assert.Contains(t, out, "mailpoll export")
}

func TestRenderMessage_LongBodyTruncated(t *testing.T) {
	msg := renderedMessage()
	msg.TextBody = strings.Repeat("line\n", 20)

	out := renderMessage(msg)

	assert.Contains(t, out, "...")
	assert.Less(t, strings.Count(out, "line"), 10)
}
