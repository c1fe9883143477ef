// Package cli wires the cobra command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tidemark-labs/mailpoll/internal/config"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

var (
	// version is set by goreleaser ldflags.
	version = "dev"

	// verbose enables debug logging.
	verbose bool

	// configPath locates the TOML config file.
	configPath string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "mailpoll",
	Short: "Fetch and archive Microsoft 365 / Outlook mail",
	Long: `Mailpoll fetches unread mail from Microsoft 365 and Outlook.com
mailboxes via Microsoft Graph and archives it locally.

Accounts are declared in a TOML file; work/school tenants authenticate
with a client secret, personal accounts sign in as a user (with a
device-code fallback), and a pre-issued access token can be supplied
directly.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to the config file")

	// Set verbose mode before any command executes.
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return nil
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
