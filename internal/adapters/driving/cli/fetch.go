package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/core/ports/driven"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch unread messages for one account",
	Long: `Fetch unread messages from one configured account and print them.

By default only unread messages are returned. --since narrows the
result to messages received at or after the given instant; --filter
replaces the filter entirely with a raw OData expression.

Examples:
  # Unread messages for the first configured account
  mailpoll fetch

  # Unread messages since a date, marked read afterwards
  mailpoll fetch --account work --since 2025-06-01 --mark-read

  # A raw Graph filter expression
  mailpoll fetch --filter "hasAttachments eq true"`,
	RunE: runFetch,
}

var (
	fetchAccount  string
	fetchSince    string
	fetchFilter   string
	fetchLimit    int
	fetchMarkRead bool
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchAccount, "account", "a", "", "account name (defaults to the first configured account)")
	fetchCmd.Flags().StringVar(&fetchSince, "since", "", "only messages received at or after this time (RFC 3339 or YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchFilter, "filter", "", "raw OData filter expression, replaces the default filter")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, fmt.Sprintf("maximum messages to fetch (default %d)", domain.DefaultFetchLimit))
	fetchCmd.Flags().BoolVar(&fetchMarkRead, "mark-read", false, "mark fetched messages read at the provider")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	acct, err := findAccount(cfg, fetchAccount)
	if err != nil {
		return err
	}

	criteria := domain.FetchCriteria{RawFilter: fetchFilter, Limit: fetchLimit}
	if fetchSince != "" {
		since, err := parseSince(fetchSince)
		if err != nil {
			return err
		}
		criteria.Since = since
	}

	ctx := cmd.Context()
	mailbox := buildMailbox(cmd, acct)
	defer mailbox.Disconnect()

	messages, err := mailbox.Fetch(ctx, criteria)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", acct.Name, err)
	}

	if len(messages) == 0 {
		cmd.Println("No messages.")
		return nil
	}

	for i := range messages {
		cmd.Println(renderMessage(&messages[i]))
	}
	cmd.Printf("%d message(s).\n", len(messages))

	if fetchMarkRead {
		return markFetched(ctx, cmd, mailbox, messages)
	}
	return nil
}

func markFetched(ctx context.Context, cmd *cobra.Command, mailbox driven.Mailbox, messages []domain.EmailMessage) error {
	ids := make([]string, 0, len(messages))
	for i := range messages {
		ids = append(ids, messages[i].ID)
	}

	results, err := mailbox.MarkRead(ctx, ids)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			logger.Warn("fetch: mark read of %s failed: %v", res.ID, res.Err)
		}
	}
	if failed > 0 {
		cmd.Printf("Marked %d read, %d failed.\n", len(results)-failed, failed)
	} else {
		cmd.Printf("Marked %d read.\n", len(results))
	}
	return nil
}

// parseSince accepts an RFC 3339 timestamp or a bare date, interpreted
// as midnight UTC.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q (want RFC 3339 or YYYY-MM-DD)", s)
}
