package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagegrab.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagegrab",
		Short: "Fetch web pages and extract normalized documents",
		Long: `pagegrab fetches web pages over HTTP(S) and turns each one into a document
with a title, whitespace-normalized visible text and absolute outbound links.

Transient failures (timeouts, network errors) are retried with exponential
backoff. Rate-limited (HTTP 429) and oversized responses fail immediately.
Batches fetch every URL concurrently and keep whatever succeeds.

Documents, failures and batch summaries are stored in a local SQLite
database unless --no-db is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
