// Package commands holds the shopledger CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X github.com/tinoosan/shopledger/internal/commands.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "shopledger",
		Short:   "Double-entry general ledger and financial reports for a retail back office",
		Version: Version + " (commit: " + Commit + ")",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newAccountsCommand())

	return rootCmd
}
