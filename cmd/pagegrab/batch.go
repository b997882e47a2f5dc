package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagegrab/internal/config"
	"github.com/nao1215/pagegrab/internal/pipeline"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [url...]",
		Short: "Fetch many URLs concurrently",
		Long: `Batch fetches every URL at the same time and outputs the documents that
succeeded, in the order they completed. A URL that fails is logged, recorded
in the database and dropped; it never stops the rest of the batch.

URLs come from the arguments, from --list, or both. --limit keeps only the
first K URLs before anything is fetched.

Examples:
  # Fetch three pages
  pagegrab batch https://example.com https://example.org https://example.net

  # Fetch the first 10 URLs of a list as JSON lines for indexing
  pagegrab batch --list urls.txt --limit 10 --index

List file format: one URL per line. Blank lines and lines starting with #
are ignored.`,
		Args: cobra.ArbitraryArgs,
		RunE: runBatchCmd,
	}

	addFetchFlags(cmd)

	cmd.Flags().StringP("list", "l", "",
		"File with one URL per line")
	cmd.Flags().IntP("limit", "n", 0,
		"Only fetch the first N URLs (0 means all)")

	return cmd
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.ListFile, err = cmd.Flags().GetString("list"); err != nil {
		return err
	}
	if cfg.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if cfg.ListFile != "" {
		listed, err := readURLList(cfg.ListFile)
		if err != nil {
			return err
		}
		cfg.URLs = append(cfg.URLs, listed...)
	}
	cfg.URLs = pipeline.Truncate(cfg.URLs, cfg.Limit)
	if len(cfg.URLs) == 0 {
		return fmt.Errorf("configuration error: %w", config.ErrNoURL)
	}

	logger := setupLogger(cfg.Verbose)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runBatch(ctx, cfg, logger, cmd.OutOrStdout())
}

// readURLList reads one URL per line, skipping blanks and # comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided list path
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}

type failedURL struct {
	url string
	err error
}

// runBatch fetches cfg.URLs concurrently, stores failures and the batch
// summary, and writes the surviving documents.
func runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (err error) {
	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var (
		mu       sync.Mutex
		failures []failedURL
	)
	opts := []pipeline.BatchOption{
		pipeline.WithBatchLogger(logger),
		pipeline.WithFailureHandler(func(url string, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, failedURL{url: url, err: err})
		}),
	}
	if p := s.documentPipeline(); p.StepCount() > 0 {
		opts = append(opts, pipeline.WithDocumentPipeline(p))
	}

	bp := pipeline.NewBatchProcessor(s.fetcher, opts...)
	result, summary := bp.FetchAndParseBatchWithSummary(ctx, cfg.URLs)

	for _, f := range failures {
		s.recordFailure(ctx, f.url, summary.BatchID, f.err)
	}
	s.saveBatch(ctx, summary)

	out, closeOut, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // write errors surface from WriteBatch

	if _, err := newReportWriter(cfg, out).WriteBatch(result, summary); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return nil
}
