package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

var (
	subjectStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// renderMessage formats one fetched message for terminal output.
func renderMessage(msg *domain.EmailMessage) string {
	var b strings.Builder

	b.WriteString(subjectStyle.Render(orUntitled(msg.Subject)))
	b.WriteString("\n")

	writeField(&b, "From", msg.From.String())
	writeField(&b, "To", domain.FormatAddressList(msg.To))
	writeField(&b, "Cc", domain.FormatAddressList(msg.Cc))
	if !msg.ReceivedAt.IsZero() {
		writeField(&b, "Date", metaStyle.Render(msg.ReceivedAt.Format("2006-01-02 15:04:05 MST")))
	}
	writeField(&b, "Id", faintStyle.Render(msg.ID))

	if len(msg.Attachments) > 0 {
		names := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			names = append(names, att.Filename)
		}
		writeField(&b, "Attached", strings.Join(names, ", "))
	}

	if preview := bodyPreview(msg); preview != "" {
		b.WriteString("\n")
		b.WriteString(preview)
		b.WriteString("\n")
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(label+":"), value)
}

func orUntitled(subject string) string {
	if subject == "" {
		return "(no subject)"
	}
	return subject
}

// bodyPreview returns the first lines of the text body. HTML bodies are
// not rendered inline; export the message instead.
func bodyPreview(msg *domain.EmailMessage) string {
	if msg.TextBody == "" {
		if msg.HTMLBody != "" {
			return faintStyle.Render("(HTML body, use 'mailpoll export' to save it)")
		}
		return ""
	}

	const maxLines = 6
	lines := strings.Split(strings.TrimSpace(msg.TextBody), "\n")
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], faintStyle.Render("..."))
	}
	return strings.Join(lines, "\n")
}
