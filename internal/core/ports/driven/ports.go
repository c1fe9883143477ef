// Package driven defines the outbound ports the core services depend on.
package driven

import (
	"context"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

// TokenProvider yields bearer tokens for provider API calls.
type TokenProvider interface {
	// GetToken returns the held token, authenticating first if none is held.
	GetToken(ctx context.Context) (string, error)
	// Invalidate drops the held token so the next call re-authenticates.
	// It is a no-op for externally supplied tokens.
	Invalidate()
	// Disconnect clears the held token from memory. The provider's
	// application object and its token cache survive, so a later
	// GetToken may still be served silently.
	Disconnect()
	// Mode reports the authentication mode fixed at construction.
	Mode() domain.AuthMode
}

// Mailbox lists and updates messages for one account.
type Mailbox interface {
	// Fetch returns messages matching the criteria. Zero matches is a
	// successful empty result, not an error.
	Fetch(ctx context.Context, criteria domain.FetchCriteria) ([]domain.EmailMessage, error)
	// MarkRead flags each message read, one call per id, continuing past
	// individual failures. The error covers failures that prevent the
	// batch from running at all, such as authentication.
	MarkRead(ctx context.Context, ids []string) ([]domain.MarkResult, error)
	// Disconnect drops the account's held token from memory only.
	Disconnect()
}

// MessageStore archives fetched messages locally.
type MessageStore interface {
	Save(ctx context.Context, runID string, msg *domain.EmailMessage) error
	// Seen reports whether a message was archived previously.
	Seen(ctx context.Context, account, id string) (bool, error)
	Get(ctx context.Context, account, id string) (*domain.EmailMessage, error)
	Close() error
}
