// Package pipeline coordinates fetching many URLs and post-processing the
// resulting documents.
//
// BatchProcessor fans a URL list out to a DocumentFetcher, one goroutine per
// URL, and collects successful documents in completion order. Failures are
// logged with their URL and dropped; a batch call never fails as a whole.
//
// Pipeline runs a sequence of Steps over each fetched document, for example
// filtering short pages, persisting to the document store and exporting
// index records. A Pipeline can be attached to a BatchProcessor with
// WithDocumentPipeline.
package pipeline
