package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/pagegrab/internal/config"
	"github.com/nao1215/pagegrab/internal/database"
	"github.com/nao1215/pagegrab/internal/fetcher"
	"github.com/nao1215/pagegrab/internal/metrics"
	"github.com/nao1215/pagegrab/internal/model"
	"github.com/nao1215/pagegrab/internal/pipeline"
	"github.com/nao1215/pagegrab/internal/report"
	"github.com/nao1215/pagegrab/internal/tor"
)

// session holds the resources one fetch or batch run needs. Close releases
// them in reverse order of acquisition.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher *fetcher.Fetcher
	db      *database.DocumentDB
	metrics *metrics.Collector
	tor     *tor.EmbeddedTor
	export  *os.File
}

// openSession opens the database, starts the proxy if one is configured, and
// opens a fetcher. On error, anything already acquired is released.
func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *session, err error) {
	s := &session{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = s.Close() //nolint:errcheck // best effort cleanup
		}
	}()

	if cfg.SaveToDB {
		s.db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("database opened", "path", s.db.Path())
	}

	if cfg.MetricsFile != "" {
		s.metrics = metrics.New()
	}

	if cfg.ExportFile != "" {
		s.export, err = openExport(cfg.ExportFile)
		if err != nil {
			return nil, err
		}
	}

	opts := []fetcher.Option{
		fetcher.WithLogger(logger),
		fetcher.WithRetryPolicy(cfg.RetryPolicy()),
		fetcher.WithMetrics(s.metrics),
	}
	if headers := cfg.HeaderFunc(); headers != nil {
		opts = append(opts, fetcher.WithHeaders(headers))
	}

	client, err := s.proxyClient(ctx)
	if err != nil {
		return nil, err
	}
	if client != nil {
		opts = append(opts, fetcher.WithDialContext(client.DialContext))
	}

	s.fetcher, err = fetcher.New(cfg.FetcherConfig(), opts...)
	if err != nil {
		return nil, err
	}
	if err := s.fetcher.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// proxyClient returns the SOCKS5 client requests should use, or nil for
// direct connections. With --tor it starts the embedded daemon first.
func (s *session) proxyClient(ctx context.Context) (*tor.Client, error) {
	var client *tor.Client

	switch {
	case s.cfg.UseTor:
		fmt.Fprintln(os.Stderr, "Starting embedded Tor daemon (this may take a few minutes)...")

		s.tor = tor.NewEmbeddedTor(tor.WithStartupTimeout(s.cfg.TorStartupTimeout))
		if err := s.tor.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		s.logger.Info("embedded Tor daemon started",
			"socks_addr", s.tor.SocksAddr(),
			"control_addr", s.tor.ControlAddr(),
		)

		var err error
		client, err = s.tor.NewClient(s.cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create Tor client: %w", err)
		}
	case s.cfg.ProxyAddress != "":
		var err error
		client, err = tor.NewClient(s.cfg.ProxyAddress, s.cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
	default:
		return nil, nil
	}

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		return nil, fmt.Errorf("proxy check failed for %s: %w", client.ProxyAddress(), status.Error())
	}
	s.logger.Info("proxy connection verified", "address", client.ProxyAddress(), "login", client.HasAuth())
	return client, nil
}

// documentPipeline builds the post-fetch steps: filters first, then
// persistence, so rejected documents are never stored.
func (s *session) documentPipeline() *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(s.logger))

	if s.cfg.MinLength > 0 {
		p.AddStep(pipeline.NewMinLengthStep(s.cfg.MinLength))
	}
	if s.db != nil {
		if s.cfg.SkipUnchanged {
			p.AddStep(pipeline.NewSkipUnchangedStep(s.db))
		}
		p.AddStep(pipeline.NewPersistStep(s.db, pipeline.WithPersistLogger(s.logger)))
	}
	if s.export != nil {
		p.AddStep(pipeline.NewExportStep("index", report.NewIndexWriter(s.export)))
	}
	return p
}

// recordFailure stores a fetch failure. Pipeline rejections are not fetch
// failures and are skipped. Persistence runs even if ctx was cancelled.
func (s *session) recordFailure(ctx context.Context, url, batchID string, err error) {
	if s.db == nil || fetcher.KindOf(err) == fetcher.KindUnknown {
		return
	}
	rec := database.NewFailureRecord(url, batchID, err)
	if err := s.db.RecordFailure(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("failed to record failure", "url", url, "error", err)
	}
}

// saveBatch stores the batch summary.
func (s *session) saveBatch(ctx context.Context, summary *model.BatchSummary) {
	if s.db == nil || summary == nil {
		return
	}
	if err := s.db.SaveBatch(context.WithoutCancel(ctx), summary); err != nil {
		s.logger.Error("failed to save batch summary", "batch_id", summary.BatchID, "error", err)
	}
}

// Close releases every resource and writes the metrics file.
func (s *session) Close() error {
	var errs []error

	if s.fetcher != nil {
		errs = append(errs, s.fetcher.Close())
	}
	if s.metrics != nil && s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if s.tor != nil {
		s.logger.Info("stopping embedded Tor daemon...")
		if err := s.tor.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop embedded Tor: %w", err))
		}
	}
	if s.export != nil {
		errs = append(errs, s.export.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// openExport opens the index export file for appending.
func openExport(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // user-provided export path
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	return f, nil
}

// openOutput returns where reports go: the --output file, or stdout.
// The returned close function must always be called.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Documents may contain session-specific content; keep them owner-only.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the selected output format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	case cfg.IndexReport:
		return report.NewIndexWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
