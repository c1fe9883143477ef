// Package eml renders archived messages as RFC 5322 files.
package eml

import (
	"fmt"
	"io"

	"github.com/emersion/go-message/mail"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

// Write renders the message to w in .eml form. The body part mirrors
// the archived representation: HTML when the source was HTML, plain
// text otherwise.
func Write(w io.Writer, msg *domain.EmailMessage) error {
	var h mail.Header
	if !msg.ReceivedAt.IsZero() {
		h.SetDate(msg.ReceivedAt)
	}
	h.SetSubject(msg.Subject)
	if msg.MessageID != "" {
		h.Set("Message-Id", msg.MessageID)
	}
	if msg.From.Address != "" {
		h.SetAddressList("From", toMailAddresses([]domain.EmailAddress{msg.From}))
	}
	if len(msg.To) > 0 {
		h.SetAddressList("To", toMailAddresses(msg.To))
	}
	if len(msg.Cc) > 0 {
		h.SetAddressList("Cc", toMailAddresses(msg.Cc))
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}

	if err := writeBody(mw, msg); err != nil {
		return err
	}

	for _, att := range msg.Attachments {
		if err := writeAttachment(mw, att); err != nil {
			return err
		}
	}

	return mw.Close()
}

func writeBody(mw *mail.Writer, msg *domain.EmailMessage) error {
	contentType := "text/plain; charset=utf-8"
	content := msg.TextBody
	if msg.HTMLBody != "" {
		contentType = "text/html; charset=utf-8"
		content = msg.HTMLBody
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("create inline: %w", err)
	}

	var ih mail.InlineHeader
	ih.Set("Content-Type", contentType)

	pw, err := tw.CreatePart(ih)
	if err != nil {
		return fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(pw, content); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close body part: %w", err)
	}
	return tw.Close()
}

func writeAttachment(mw *mail.Writer, att domain.Attachment) error {
	var ah mail.AttachmentHeader
	if att.ContentType != "" {
		ah.Set("Content-Type", att.ContentType)
	}
	ah.SetFilename(att.Filename)

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("create attachment %q: %w", att.Filename, err)
	}
	if _, err := aw.Write(att.Content); err != nil {
		return fmt.Errorf("write attachment %q: %w", att.Filename, err)
	}
	return aw.Close()
}

func toMailAddresses(addrs []domain.EmailAddress) []*mail.Address {
	out := make([]*mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &mail.Address{Name: a.Name, Address: a.Address})
	}
	return out
}
