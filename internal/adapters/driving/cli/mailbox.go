package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tidemark-labs/mailpoll/internal/auth/msal"
	"github.com/tidemark-labs/mailpoll/internal/config"
	"github.com/tidemark-labs/mailpoll/internal/connectors/microsoft/graphmail"
	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

// buildMailbox assembles the token provider and mail client for one
// configured account. Device-code sign-in instructions are printed on
// the command's output stream.
func buildMailbox(cmd *cobra.Command, acct *config.Account) *graphmail.Client {
	authCfg := maybePromptPassword(cmd, acct.AuthConfig())

	tokens := msal.New(authCfg, func(message string) {
		cmd.Println()
		cmd.Println(message)
	})

	return graphmail.New(tokens, acct.Name, acct.Principal())
}

// maybePromptPassword offers an interactive password entry for personal
// accounts that configured none. An empty entry falls through to the
// device-code flow.
func maybePromptPassword(cmd *cobra.Command, authCfg domain.AuthConfig) domain.AuthConfig {
	personal, ok := authCfg.(domain.PersonalAuth)
	if !ok || personal.Password != "" {
		return authCfg
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return authCfg
	}

	cmd.Printf("Password for %s (leave empty to sign in on another device): ", personal.Username)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return authCfg
	}

	personal.Password = string(raw)
	return personal
}

// findAccount resolves the --account flag against the config.
func findAccount(cfg *config.Config, name string) (*config.Account, error) {
	acct, err := cfg.FindAccount(name)
	if err != nil {
		return nil, err
	}
	if acct.Disabled {
		return nil, fmt.Errorf("account %q is disabled", acct.Name)
	}
	return acct, nil
}
