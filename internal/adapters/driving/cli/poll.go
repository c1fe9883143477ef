package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/mailpoll/internal/config"
	"github.com/tidemark-labs/mailpoll/internal/core/services"
	"github.com/tidemark-labs/mailpoll/internal/logger"
	"github.com/tidemark-labs/mailpoll/internal/storage/sqlite"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll all configured accounts and archive new mail",
	Long: `Poll every enabled account on its configured interval and archive
new messages into the local store. Accounts with mark_read set have
archived messages flagged read at the provider.

The config file is watched; edits take effect without a restart.
Runs until interrupted.`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	poller := services.NewPoller(store)
	if err := poller.Start(ctx, pollAccounts(cmd, cfg)); err != nil {
		return err
	}
	defer poller.Stop()

	updates, err := config.Watch(ctx, configPath)
	if err != nil {
		logger.Warn("poll: config watch unavailable: %v", err)
		updates = nil
	}

	cmd.Printf("Polling %d account(s). Press Ctrl-C to stop.\n", len(cfg.Accounts))

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopping.")
			return nil
		case newCfg, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if err := poller.Reload(ctx, pollAccounts(cmd, newCfg)); err != nil {
				logger.Warn("poll: reload failed: %v", err)
			}
		}
	}
}

// pollAccounts builds the schedule entries for every enabled account.
func pollAccounts(cmd *cobra.Command, cfg *config.Config) []services.PollAccount {
	accounts := make([]services.PollAccount, 0, len(cfg.Accounts))
	for i := range cfg.Accounts {
		acct := &cfg.Accounts[i]
		if acct.Disabled {
			logger.Debug("poll: skipping disabled account %q", acct.Name)
			continue
		}
		accounts = append(accounts, services.PollAccount{
			Name:     acct.Name,
			Mailbox:  buildMailbox(cmd, acct),
			Interval: acct.Interval(),
			MarkRead: acct.MarkRead,
			Limit:    acct.Limit,
		})
	}
	return accounts
}
