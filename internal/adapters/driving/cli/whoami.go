package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/mailpoll/internal/auth/msal"
	"github.com/tidemark-labs/mailpoll/internal/connectors/microsoft"
	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the profile an account authenticates as",
	Long: `Authenticate one configured account and print the Graph profile the
resulting token resolves to. Useful for verifying credentials before
starting a poll.`,
	RunE: runWhoami,
}

var whoamiAccount string

func init() {
	whoamiCmd.Flags().StringVarP(&whoamiAccount, "account", "a", "", "account name (defaults to the first configured account)")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	acct, err := findAccount(cfg, whoamiAccount)
	if err != nil {
		return err
	}

	authCfg := maybePromptPassword(cmd, acct.AuthConfig())
	tokens := msal.New(authCfg, func(message string) {
		cmd.Println()
		cmd.Println(message)
	})
	defer tokens.Disconnect()

	ctx := cmd.Context()
	token, err := tokens.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("authenticate %s: %w", acct.Name, err)
	}

	// Application tokens are not bound to a signed-in user; resolve the
	// configured principal instead of /me.
	var info *microsoft.UserInfo
	if tokens.Mode() == domain.ModeTenant {
		info, err = microsoft.GetUserProfile(ctx, token, acct.Principal())
	} else {
		info, err = microsoft.GetUserInfo(ctx, token)
	}
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	cmd.Printf("Account:  %s\n", acct.Name)
	cmd.Printf("Mode:     %s\n", tokens.Mode())
	cmd.Printf("Name:     %s\n", info.DisplayName)
	cmd.Printf("Email:    %s\n", info.GetUserEmail())
	cmd.Printf("User id:  %s\n", info.ID)
	return nil
}
