package model

import (
	"sort"
	"time"
)

// BatchResult holds the documents that a batch fetched successfully,
// in the order their fetches completed. Failed URLs are absent.
type BatchResult []*ScrapedDocument

// URLs returns the requested URL of each document in result order.
func (r BatchResult) URLs() []string {
	urls := make([]string, 0, len(r))
	for _, doc := range r {
		urls = append(urls, doc.URL)
	}
	return urls
}

// IndexDocuments converts every document into its index triple.
func (r BatchResult) IndexDocuments() []IndexDocument {
	docs := make([]IndexDocument, 0, len(r))
	for _, doc := range r {
		docs = append(docs, doc.IndexDocument())
	}
	return docs
}

// TotalLength is the sum of the text lengths of all documents.
func (r BatchResult) TotalLength() int {
	total := 0
	for _, doc := range r {
		total += doc.Length
	}
	return total
}

// BatchSummary is a short account of one batch run, suitable for
// terminal output and persistence.
type BatchSummary struct {
	// BatchID uniquely identifies the run.
	BatchID string `json:"batch_id"`

	// Requested is the number of URLs submitted after truncation.
	Requested int `json:"requested"`

	// Succeeded is the number of documents produced.
	Succeeded int `json:"succeeded"`

	// Failed is the number of URLs that were logged and dropped.
	Failed int `json:"failed"`

	// FailuresByKind counts failures by error kind name.
	FailuresByKind map[string]int `json:"failures_by_kind,omitempty"`

	// TotalLength is the combined text length of all documents.
	TotalLength int `json:"total_length"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the batch took.
func (s *BatchSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SuccessRate returns the fraction of requested URLs that succeeded.
// An empty batch reports zero.
func (s *BatchSummary) SuccessRate() float64 {
	if s.Requested == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Requested)
}

// FailureKinds returns the failure kind names sorted alphabetically.
func (s *BatchSummary) FailureKinds() []string {
	kinds := make([]string, 0, len(s.FailuresByKind))
	for kind := range s.FailuresByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
