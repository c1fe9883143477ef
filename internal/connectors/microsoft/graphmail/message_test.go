package graphmail

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

// messageFromJSON builds a wire message the way the client does, so the
// anonymous emailAddress structs don't need to be spelled out in tests.
func messageFromJSON(t *testing.T, raw string) *Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return &msg
}

func TestNormalize(t *testing.T) {
	msg := messageFromJSON(t, `{
		"id": "AAMkAGI2ABC123",
		"internetMessageId": "<abc123@mail.example.com>",
		"subject": "Quarterly report",
		"body": {"contentType": "text", "content": "Report attached."},
		"from": {"emailAddress": {"name": "John Doe", "address": "john@example.com"}},
		"toRecipients": [
			{"emailAddress": {"name": "Jane Smith", "address": "jane@example.com"}},
			{"emailAddress": {"name": "", "address": "ops@example.com"}}
		],
		"ccRecipients": [
			{"emailAddress": {"name": "Archive", "address": "archive@example.com"}}
		],
		"receivedDateTime": "2025-01-15T10:30:00Z",
		"hasAttachments": false
	}`)

	rec := Normalize(msg, "work")

	assert.Equal(t, "AAMkAGI2ABC123", rec.ID)
	assert.Equal(t, "<abc123@mail.example.com>", rec.MessageID)
	assert.Equal(t, "Quarterly report", rec.Subject)
	assert.Equal(t, "John Doe <john@example.com>", rec.From.String())
	require.Len(t, rec.To, 2)
	assert.Equal(t, "Jane Smith <jane@example.com>", rec.To[0].String())
	assert.Equal(t, "ops@example.com", rec.To[1].String())
	require.Len(t, rec.Cc, 1)
	assert.Equal(t, "Archive <archive@example.com>", rec.Cc[0].String())
	assert.Equal(t, "work", rec.Account)
	assert.Equal(t, domain.ProviderMicrosoft, rec.Provider)
	assert.Equal(t, time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC), rec.ReceivedAt)
}

func TestNormalize_BodyExclusivity(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantText    bool
		wantHTML    bool
	}{
		{name: "text body", contentType: "text", wantText: true},
		{name: "html body", contentType: "html", wantHTML: true},
		{name: "html body uppercase", contentType: "HTML", wantHTML: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{
				ID:   "msg-1",
				Body: &MessageBody{ContentType: tt.contentType, Content: "<p>hello</p>"},
			}

			rec := Normalize(msg, "acct")

			if tt.wantText {
				assert.NotEmpty(t, rec.TextBody)
				assert.Empty(t, rec.HTMLBody)
			}
			if tt.wantHTML {
				assert.NotEmpty(t, rec.HTMLBody)
				assert.Empty(t, rec.TextBody)
			}
		})
	}
}

func TestNormalize_EmptyBody(t *testing.T) {
	rec := Normalize(&Message{ID: "msg-1"}, "acct")

	assert.Empty(t, rec.TextBody)
	assert.Empty(t, rec.HTMLBody)
	assert.False(t, rec.HasBody())
}

func TestNormalize_ReceivedAtUTC(t *testing.T) {
	msg := &Message{
		ID:               "msg-1",
		ReceivedDateTime: "2025-03-10T18:45:00+11:00",
	}

	rec := Normalize(msg, "acct")

	assert.Equal(t, time.UTC, rec.ReceivedAt.Location())
	assert.Equal(t, time.Date(2025, 3, 10, 7, 45, 0, 0, time.UTC), rec.ReceivedAt)
}

func TestDecodeAttachments(t *testing.T) {
	payload := []byte("%PDF-1.7 fake report")
	msg := &Message{
		ID: "msg-1",
		Attachments: []Attachment{
			{
				Name:         "report.pdf",
				ContentType:  "application/pdf",
				ContentBytes: base64.StdEncoding.EncodeToString(payload),
			},
			{
				// Too large for inlining: Graph omits contentBytes.
				Name:        "video.mp4",
				ContentType: "video/mp4",
			},
			{
				Name:         "broken.bin",
				ContentType:  "application/octet-stream",
				ContentBytes: "!!not-base64!!",
			},
		},
	}

	atts := decodeAttachments(msg)

	require.Len(t, atts, 1)
	assert.Equal(t, "report.pdf", atts[0].Filename)
	assert.Equal(t, "application/pdf", atts[0].ContentType)
	assert.Equal(t, payload, atts[0].Content)
}

func TestNormalize_NoFrom(t *testing.T) {
	rec := Normalize(&Message{ID: "msg-1", Subject: "Draft"}, "acct")

	assert.Empty(t, rec.From.Address)
	assert.Empty(t, rec.From.String())
}
