package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagegrab/internal/config"
	"github.com/nao1215/pagegrab/internal/database"
	"github.com/nao1215/pagegrab/internal/model"
)

// noBatchFailures is shown for batches where every URL succeeded.
const noBatchFailures = "no failures"

// NewHistoryCmd creates the history command.
// It reads documents, failures and batch summaries from the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [id-or-url]",
		Short: "Show stored documents, failures and batches",
		Long: `History reads what earlier fetch and batch runs stored in the database.

Without arguments it lists the most recently stored documents. Given a
document ID or URL it prints that document in full.

Examples:
  # List the 20 most recently stored documents
  pagegrab history

  # Show one document as Markdown
  pagegrab history --markdown https://example.com

  # List recorded fetch failures, optionally for one URL
  pagegrab history --failures
  pagegrab history --failures https://example.com

  # List recent batch runs
  pagegrab history --batches`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("failures", false,
		"List recorded fetch failures (filtered by the URL argument when given)")
	cmd.Flags().Bool("batches", false,
		"List recent batch runs")
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Maximum number of entries to list (0 means all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the document database")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a single document as Markdown")

	return cmd
}

// historyOptions are the history command's flag values.
type historyOptions struct {
	failures bool
	batches  bool
	limit    int
	dbDir    string
	json     bool
	markdown bool
}

func readHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.failures, err = flags.GetBool("failures"); err != nil {
		return opts, err
	}
	if opts.batches, err = flags.GetBool("batches"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := readHistoryOptions(cmd)
	if err != nil {
		return err
	}

	// Validate before opening the database so a bad invocation never creates one.
	if opts.failures && opts.batches {
		return errors.New("--failures and --batches cannot be used together")
	}
	if opts.batches && len(args) > 0 {
		return errors.New("--batches does not take an argument")
	}
	if opts.json && opts.markdown {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingOutputFormats)
	}
	if opts.limit < 0 {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidLimit)
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database in %s (run 'pagegrab fetch' first): %w", opts.dbDir, err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case opts.batches:
		return listBatches(ctx, db, out, opts)
	case opts.failures:
		url := ""
		if len(args) > 0 {
			url = args[0]
		}
		return listFailures(ctx, db, out, url, opts)
	case len(args) > 0:
		return showDocument(ctx, db, out, args[0], opts)
	default:
		return listDocuments(ctx, db, out, opts)
	}
}

// listDocuments prints the most recently stored documents.
func listDocuments(ctx context.Context, db *database.DocumentDB, out io.Writer, opts historyOptions) error {
	docs, err := db.ListDocuments(ctx, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if opts.json {
		if docs == nil {
			docs = []*model.ScrapedDocument{}
		}
		return writeJSON(out, docs)
	}

	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents found in the database.")
		fmt.Fprintln(out, "\nUse 'pagegrab fetch <url>' to fetch and store a page.")
		return nil
	}

	total, err := db.CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	fmt.Fprintf(out, "Stored documents (%d of %d):\n\n", len(docs), total)
	fmt.Fprintf(out, "  %-32s  %-20s  %8s  %s\n", "ID", "Fetched", "Length", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, doc := range docs {
		fmt.Fprintf(out, "  %-32s  %-20s  %8d  %s\n",
			doc.ID,
			formatTime(doc.Metadata.FetchedAt),
			doc.Length,
			doc.URL,
		)
	}
	fmt.Fprintln(out, "\nUse 'pagegrab history <id>' to show a document.")
	return nil
}

// showDocument prints one document looked up by ID, then by URL.
func showDocument(ctx context.Context, db *database.DocumentDB, out io.Writer, key string, opts historyOptions) error {
	doc, err := db.GetDocument(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		if doc, err = db.GetDocumentByURL(ctx, key); err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
	}
	if doc == nil {
		return fmt.Errorf("no stored document for %q", key)
	}

	cfg := config.NewConfig()
	cfg.JSONReport = opts.json
	cfg.MarkdownReport = opts.markdown
	cfg.Verbose = true
	_, err = newReportWriter(cfg, out).WriteDocument(doc)
	return err
}

// listFailures prints recorded fetch failures, newest first.
func listFailures(ctx context.Context, db *database.DocumentDB, out io.Writer, url string, opts historyOptions) error {
	failures, err := db.ListFailures(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to list failures: %w", err)
	}
	if opts.limit > 0 && len(failures) > opts.limit {
		failures = failures[:opts.limit]
	}
	if opts.json {
		if failures == nil {
			failures = []database.FailureRecord{}
		}
		return writeJSON(out, failures)
	}

	if len(failures) == 0 {
		if url != "" {
			fmt.Fprintf(out, "No failures recorded for %s\n", url)
		} else {
			fmt.Fprintln(out, "No failures recorded.")
		}
		return nil
	}

	fmt.Fprintf(out, "Fetch failures (%d):\n\n", len(failures))
	fmt.Fprintf(out, "  %-20s  %-20s  %-6s  %s\n", "Date", "Kind", "Status", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, f := range failures {
		status := "-"
		if f.StatusCode != 0 {
			status = fmt.Sprint(f.StatusCode)
		}
		fmt.Fprintf(out, "  %-20s  %-20s  %-6s  %s\n",
			formatTime(f.Timestamp),
			f.Kind,
			status,
			f.URL,
		)
		if f.RetryAfter != "" {
			fmt.Fprintf(out, "  %-20s  retry after: %s\n", "", f.RetryAfter)
		}
	}
	return nil
}

// listBatches prints recent batch summaries, newest first.
func listBatches(ctx context.Context, db *database.DocumentDB, out io.Writer, opts historyOptions) error {
	batches, err := db.ListBatches(ctx, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}
	if opts.json {
		if batches == nil {
			batches = []*model.BatchSummary{}
		}
		return writeJSON(out, batches)
	}

	if len(batches) == 0 {
		fmt.Fprintln(out, "No batches recorded.")
		fmt.Fprintln(out, "\nUse 'pagegrab batch <url>...' to run a batch.")
		return nil
	}

	fmt.Fprintf(out, "Batches (%d):\n\n", len(batches))
	fmt.Fprintf(out, "  %-36s  %-20s  %5s  %5s  %5s  %s\n", "Batch ID", "Started", "Req", "OK", "Fail", "Failures")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, b := range batches {
		fmt.Fprintf(out, "  %-36s  %-20s  %5d  %5d  %5d  %s\n",
			b.BatchID,
			formatTime(b.StartedAt),
			b.Requested,
			b.Succeeded,
			b.Failed,
			formatFailureKinds(b),
		)
	}
	return nil
}

// formatFailureKinds renders failure counts as "kind:n" pairs in a stable order.
func formatFailureKinds(summary *model.BatchSummary) string {
	var parts []string
	for _, kind := range summary.FailureKinds() {
		if n := summary.FailuresByKind[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", kind, n))
		}
	}
	if len(parts) == 0 {
		return noBatchFailures
	}
	return strings.Join(parts, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
