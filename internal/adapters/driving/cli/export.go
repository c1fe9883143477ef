package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/mailpoll/internal/storage/eml"
	"github.com/tidemark-labs/mailpoll/internal/storage/sqlite"
)

var exportCmd = &cobra.Command{
	Use:   "export [message-id]",
	Short: "Export an archived message as an .eml file",
	Long: `Export one archived message, attachments included, in RFC 5322
form. Writes to stdout unless --out is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportAccount string
	exportOut     string
)

func init() {
	exportCmd.Flags().StringVarP(&exportAccount, "account", "a", "", "account name (defaults to the first configured account)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (defaults to stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	acct, err := cfg.FindAccount(exportAccount)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := sqlite.Open(ctx, cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	msg, err := store.Get(ctx, acct.Name, args[0])
	if err != nil {
		return fmt.Errorf("load message %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		out = f
	}

	if err := eml.Write(out, msg); err != nil {
		return fmt.Errorf("export message %s: %w", args[0], err)
	}
	if exportOut != "" {
		cmd.Printf("Wrote %s\n", exportOut)
	}
	return nil
}
