package graphmail

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

// Message represents an Outlook message from Microsoft Graph API.
type Message struct {
	ID                string       `json:"id"`
	InternetMessageID string       `json:"internetMessageId"`
	Subject           string       `json:"subject"`
	Body              *MessageBody `json:"body"`
	From              *Recipient   `json:"from"`
	ToRecipients      []Recipient  `json:"toRecipients"`
	CcRecipients      []Recipient  `json:"ccRecipients"`
	ReceivedDateTime  string       `json:"receivedDateTime"`
	HasAttachments    bool         `json:"hasAttachments"`
	Attachments       []Attachment `json:"attachments"`
}

// MessageBody represents the body of an email.
type MessageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Recipient represents an email sender or recipient.
type Recipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// Attachment represents an attachment from an $expand=attachments listing.
// ContentBytes is only populated for attachments small enough for the
// provider to inline.
type Attachment struct {
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// ListResponse is a message listing response from Microsoft Graph.
type ListResponse struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

// Normalize converts a Graph message into the domain record.
//
// The body is mapped exclusively: an "html" content type populates
// HTMLBody, anything else populates TextBody. The received timestamp is
// normalised to UTC. Attachments without inline content are omitted.
func Normalize(msg *Message, account string) domain.EmailMessage {
	out := domain.EmailMessage{
		ID:        msg.ID,
		MessageID: msg.InternetMessageID,
		Subject:   msg.Subject,
		To:        toAddresses(msg.ToRecipients),
		Cc:        toAddresses(msg.CcRecipients),
		Account:   account,
		Provider:  domain.ProviderMicrosoft,
	}

	if msg.From != nil {
		out.From = domain.EmailAddress{
			Name:    msg.From.EmailAddress.Name,
			Address: msg.From.EmailAddress.Address,
		}
	}

	if msg.Body != nil && msg.Body.Content != "" {
		if strings.EqualFold(msg.Body.ContentType, "html") {
			out.HTMLBody = msg.Body.Content
		} else {
			out.TextBody = msg.Body.Content
		}
	}

	if msg.ReceivedDateTime != "" {
		if t, err := time.Parse(time.RFC3339, msg.ReceivedDateTime); err == nil {
			out.ReceivedAt = t.UTC()
		} else {
			logger.Debug("graphmail: unparseable receivedDateTime %q on message %s", msg.ReceivedDateTime, msg.ID)
		}
	}

	out.Attachments = decodeAttachments(msg)

	return out
}

// decodeAttachments extracts attachments whose bytes were inlined.
// Attachments that would need a separate fetch are skipped silently.
func decodeAttachments(msg *Message) []domain.Attachment {
	var out []domain.Attachment
	for _, att := range msg.Attachments {
		if att.ContentBytes == "" {
			logger.Debug("graphmail: attachment %q on message %s has no inline content, skipping", att.Name, msg.ID)
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(att.ContentBytes)
		if err != nil {
			logger.Debug("graphmail: attachment %q on message %s has undecodable content: %v", att.Name, msg.ID, err)
			continue
		}
		out = append(out, domain.Attachment{
			Filename:    att.Name,
			ContentType: att.ContentType,
			Content:     raw,
		})
	}
	return out
}

func toAddresses(recipients []Recipient) []domain.EmailAddress {
	if len(recipients) == 0 {
		return nil
	}
	out := make([]domain.EmailAddress, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, domain.EmailAddress{
			Name:    r.EmailAddress.Name,
			Address: r.EmailAddress.Address,
		})
	}
	return out
}
