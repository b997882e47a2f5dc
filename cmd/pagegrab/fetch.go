package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagegrab/internal/config"
	"github.com/nao1215/pagegrab/internal/fetcher"
	"github.com/nao1215/pagegrab/internal/pipeline"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch one URL and print the extracted document",
		Long: `Fetch retrieves a single page, extracts its title, visible text and links,
and prints the resulting document.

Timeouts and network errors are retried up to three attempts in total with
exponential backoff. HTTP 429 responses fail immediately and report the
Retry-After value. Responses declaring more than --max-size bytes are
rejected before the body is read.

Examples:
  # Print a document in human-readable form
  pagegrab fetch https://example.com

  # Output JSON to a file
  pagegrab fetch --json -o out/example.json https://example.com

  # Fetch through a SOCKS5 proxy without storing the result
  pagegrab fetch --proxy 127.0.0.1:9050 --no-db https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runFetchCmd,
	}

	addFetchFlags(cmd)

	return cmd
}

// runFetchCmd executes the fetch command.
func runFetchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runFetch(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runFetch fetches cfg.URLs[0], runs the document pipeline and writes the
// document in the selected format.
func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) (err error) {
	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	url := cfg.URLs[0]
	doc, err := s.fetcher.FetchAndParse(ctx, url)
	if err != nil {
		s.recordFailure(ctx, url, "", err)
		printRetryHint(stderr, err)
		return fmt.Errorf("fetch failed: %w", err)
	}

	if err := s.documentPipeline().Execute(ctx, doc); err != nil {
		if errors.Is(err, pipeline.ErrDuplicateContent) {
			fmt.Fprintf(stderr, "Skipped %s: %v\n", url, err)
			return nil
		}
		return err
	}

	out, closeOut, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // write errors surface from WriteDocument

	if _, err := newReportWriter(cfg, out).WriteDocument(doc); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// printRetryHint tells the user when a rate-limited URL may be fetched again.
func printRetryHint(w io.Writer, err error) {
	var fe *fetcher.Error
	if !errors.As(err, &fe) || fe.Kind != fetcher.KindRateLimited {
		return
	}
	if d, ok := fe.RetryAfterDuration(); ok {
		fmt.Fprintf(w, "Rate limited; retry after %s\n", d)
	}
}
