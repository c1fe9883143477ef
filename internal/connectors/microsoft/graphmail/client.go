// Package graphmail lists and updates mail messages via Microsoft Graph.
package graphmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidemark-labs/mailpoll/internal/connectors/microsoft"
	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/core/ports/driven"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

// Ensure Client implements the port.
var _ driven.Mailbox = (*Client)(nil)

// selectFields is the fixed field set requested on every listing.
const selectFields = "id,internetMessageId,subject,from,toRecipients,ccRecipients,receivedDateTime,body,hasAttachments"

// expandAttachments asks the provider to inline attachment bytes.
// Graph only honours this for sufficiently small attachments.
const expandAttachments = "attachments($select=name,contentType,contentBytes)"

// Client fetches and updates messages for one account.
//
// The mailbox endpoint depends on the authentication mode fixed at
// construction: application tokens target the named principal's mailbox,
// delegated and static tokens target the signed-in user's own mailbox.
type Client struct {
	tokens      driven.TokenProvider
	account     string
	principal   string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *microsoft.RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Graph base endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a mail client for one account. principal is the mailbox
// owner's user principal name, required for tenant-mode access.
func New(tokens driven.TokenProvider, account, principal string, opts ...Option) *Client {
	c := &Client{
		tokens:      tokens,
		account:     account,
		principal:   principal,
		baseURL:     microsoft.GraphBaseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		rateLimiter: microsoft.NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// mailboxPath returns the mode-appropriate mailbox resource path.
func (c *Client) mailboxPath() string {
	if c.tokens.Mode() == domain.ModeTenant {
		return "/users/" + url.PathEscape(c.principal)
	}
	return "/me"
}

// Fetch returns messages matching the criteria, normalised per the rules
// in the domain package. Zero matches returns an empty slice.
func (c *Client) Fetch(ctx context.Context, criteria domain.FetchCriteria) ([]domain.EmailMessage, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	limit := criteria.Limit
	if limit <= 0 {
		limit = domain.DefaultFetchLimit
	}

	q := url.Values{}
	q.Set("$filter", BuildFilter(criteria))
	q.Set("$select", selectFields)
	q.Set("$expand", expandAttachments)
	q.Set("$top", strconv.Itoa(limit))
	u := c.baseURL + c.mailboxPath() + "/messages?" + q.Encode()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("graphmail: %s: list messages: %v", c.account, err)
		return nil, fmt.Errorf("list messages: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(resp, body)
		return nil, fmt.Errorf("list messages failed: status %d: %w",
			resp.StatusCode, microsoft.WrapError(resp.StatusCode))
	}

	var listResp ListResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]domain.EmailMessage, 0, len(listResp.Value))
	for i := range listResp.Value {
		messages = append(messages, Normalize(&listResp.Value[i], c.account))
	}

	logger.Debug("graphmail: %s: fetched %d messages", c.account, len(messages))
	return messages, nil
}

// markReadBody is the PATCH payload flagging a message read.
type markReadBody struct {
	IsRead bool `json:"isRead"`
}

// MarkRead flags each message read with one PATCH per id, strictly
// sequentially. Individual failures are recorded in the result and the
// batch continues. The returned error is non-nil only when the batch
// could not start at all.
func (c *Client) MarkRead(ctx context.Context, ids []string) ([]domain.MarkResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	payload, err := json.Marshal(markReadBody{IsRead: true})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	results := make([]domain.MarkResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, domain.MarkResult{
			ID:  id,
			Err: c.markOneRead(ctx, token, id, payload),
		})
	}
	return results, nil
}

func (c *Client) markOneRead(ctx context.Context, token, id string, payload []byte) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + c.mailboxPath() + "/messages/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("graphmail: %s: mark read %s: %v", c.account, id, err)
		return fmt.Errorf("mark read: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("read response: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(resp, body)
		return fmt.Errorf("mark read failed: status %d: %w",
			resp.StatusCode, microsoft.WrapError(resp.StatusCode))
	}
	return nil
}

// recordFailure logs a failed Graph call and updates token and limiter
// state. A 401 drops the held token so the next call re-authenticates;
// the current call still fails.
func (c *Client) recordFailure(resp *http.Response, body []byte) {
	logger.Warn("graphmail: %s: request failed: status %d: %s", c.account, resp.StatusCode, body)

	if microsoft.IsUnauthorised(resp.StatusCode) {
		c.tokens.Invalidate()
	}
	if microsoft.IsRateLimited(resp.StatusCode) {
		c.rateLimiter.RecordRateLimitError(retryAfterSeconds(resp))
	}
}

func retryAfterSeconds(resp *http.Response) int {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// Disconnect drops the account's held token from memory only. The token
// is not invalidated with the provider and the cached application object
// survives, so a later call may still be served silently.
func (c *Client) Disconnect() {
	c.tokens.Disconnect()
}
