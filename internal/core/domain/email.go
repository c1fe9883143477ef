package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies the mail provider an account belongs to.
type ProviderType string

// ProviderMicrosoft is Microsoft 365 / Outlook mail via Microsoft Graph.
const ProviderMicrosoft ProviderType = "microsoft"

// EmailAddress is a mailbox participant with an optional display name.
type EmailAddress struct {
	Name    string
	Address string
}

// String renders the address as "Display Name <address>", or the bare
// address when no display name is present.
func (a EmailAddress) String() string {
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Address)
	}
	return a.Address
}

// FormatAddressList renders addresses as a comma-separated header value.
func FormatAddressList(addrs []EmailAddress) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if s := a.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Attachment is an attachment whose bytes were inlined by the provider.
// Attachments that would require a separate fetch are not represented.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// EmailMessage is the normalised representation of a fetched message.
//
// Exactly one of TextBody and HTMLBody is populated, according to the
// provider's body content type. ReceivedAt is always UTC.
type EmailMessage struct {
	// ID is the provider's message resource identifier.
	ID string
	// MessageID is the RFC 5322 Message-Id header value.
	MessageID string
	Subject   string
	From      EmailAddress
	To        []EmailAddress
	Cc        []EmailAddress

	TextBody string
	HTMLBody string

	ReceivedAt  time.Time
	Attachments []Attachment

	// Account is the configured account name the message was fetched for.
	Account  string
	Provider ProviderType
}

// HasBody reports whether either body representation is populated.
func (m *EmailMessage) HasBody() bool {
	return m.TextBody != "" || m.HTMLBody != ""
}
