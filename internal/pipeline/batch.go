package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/pagegrab/internal/fetcher"
	"github.com/nao1215/pagegrab/internal/model"
	"golang.org/x/sync/errgroup"
)

// DocumentFetcher fetches and parses a single URL.
// *fetcher.Fetcher satisfies it.
type DocumentFetcher interface {
	FetchAndParse(ctx context.Context, url string) (*model.ScrapedDocument, error)
}

// Outcome is the result of one URL in a batch. Exactly one of Document and
// Err is set.
type Outcome struct {
	// Index is the position of URL in the submitted list.
	Index int

	// URL is the URL as submitted.
	URL string

	// Document is the fetched document on success.
	Document *model.ScrapedDocument

	// Err is the failure, unchanged from the fetcher.
	Err error
}

// BatchProcessor fetches many URLs concurrently and keeps whatever succeeds.
//
// Every URL gets its own goroutine. There is no concurrency limit here:
// callers that need one truncate the URL list first (see Truncate). A
// failing URL is logged and dropped without affecting the others.
type BatchProcessor struct {
	fetcher   DocumentFetcher
	logger    *slog.Logger
	onFailure func(url string, err error)
	pipeline  *Pipeline
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithFailureHandler registers fn to be called for every failed URL, after
// the failure is logged. fn is called from worker goroutines and must be
// safe for concurrent use.
func WithFailureHandler(fn func(url string, err error)) BatchOption {
	return func(b *BatchProcessor) {
		b.onFailure = fn
	}
}

// WithDocumentPipeline runs p over every fetched document. A document that
// p rejects is reported as a failure and left out of the result.
func WithDocumentPipeline(p *Pipeline) BatchOption {
	return func(b *BatchProcessor) {
		b.pipeline = p
	}
}

// NewBatchProcessor creates a BatchProcessor that fetches with f.
func NewBatchProcessor(f DocumentFetcher, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{fetcher: f}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// FetchAndParseBatch fetches all urls concurrently and returns the documents
// that succeeded, in completion order. It never fails: per-URL errors are
// logged and the URL is omitted from the result.
func (bp *BatchProcessor) FetchAndParseBatch(ctx context.Context, urls []string) model.BatchResult {
	result, _ := bp.FetchAndParseBatchWithSummary(ctx, urls)
	return result
}

// FetchAndParseBatchWithSummary behaves like FetchAndParseBatch and also
// returns an account of the run.
func (bp *BatchProcessor) FetchAndParseBatchWithSummary(ctx context.Context, urls []string) (model.BatchResult, *model.BatchSummary) {
	summary := &model.BatchSummary{
		BatchID:        uuid.NewString(),
		Requested:      len(urls),
		FailuresByKind: make(map[string]int),
		StartedAt:      time.Now().UTC(),
	}
	result := make(model.BatchResult, 0, len(urls))

	var mu sync.Mutex
	bp.FetchAndParseBatchWithCallback(ctx, urls, func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()

		if o.Err != nil {
			summary.Failed++
			summary.FailuresByKind[FailureKind(o.Err)]++
			return
		}
		result = append(result, o.Document)
		summary.Succeeded++
	})

	summary.TotalLength = result.TotalLength()
	summary.FinishedAt = time.Now().UTC()
	return result, summary
}

// FetchAndParseBatchWithCallback fetches all urls concurrently and passes
// each outcome to callback as soon as it is known. callback runs on the
// goroutine that completed the fetch and must be safe for concurrent use.
// It returns once every URL has been reported.
func (bp *BatchProcessor) FetchAndParseBatchWithCallback(ctx context.Context, urls []string, callback func(Outcome)) {
	bp.logger.Info("starting batch", "total_urls", len(urls))
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for i, rawURL := range urls {
		g.Go(func() error {
			doc, err := bp.fetchOne(ctx, rawURL)
			if err == nil && bp.pipeline != nil {
				err = bp.pipeline.Execute(ctx, doc)
			}
			if err != nil {
				bp.logger.Warn("fetch failed",
					"url", rawURL,
					"kind", FailureKind(err),
					"error", err,
				)
				if bp.onFailure != nil {
					bp.onFailure(rawURL, err)
				}
				callback(Outcome{Index: i, URL: rawURL, Err: err})
				// Never fail the group: siblings must keep running.
				return nil
			}

			bp.logger.Debug("fetch completed", "url", rawURL, "length", doc.Length)
			callback(Outcome{Index: i, URL: rawURL, Document: doc})
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	bp.logger.Info("batch complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)
}

// fetchOne shields the batch from a panicking fetcher.
func (bp *BatchProcessor) fetchOne(ctx context.Context, rawURL string) (doc *model.ScrapedDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &fetcher.Error{Kind: fetcher.KindExtraction, URL: rawURL, Err: panicError{value: r}}
		}
	}()
	return bp.fetcher.FetchAndParse(ctx, rawURL)
}

// FailureKind names the kind of a batch failure: the fetcher error kind, or
// "rejected" when a pipeline step turned the document down.
func FailureKind(err error) string {
	if kind := fetcher.KindOf(err); kind != fetcher.KindUnknown {
		return kind.String()
	}
	return "rejected"
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Truncate returns the first limit URLs. A limit of zero or less keeps all of them.
func Truncate(urls []string, limit int) []string {
	if limit <= 0 || limit >= len(urls) {
		return urls
	}
	return urls[:limit]
}
