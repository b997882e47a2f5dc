package report

import (
	"io"

	"github.com/nao1215/pagegrab/internal/model"
)

// Writer defines the interface for document output.
// Implementations write documents and batch results in various formats.
type Writer interface {
	// WriteDocument outputs a single document.
	// Returns the number of bytes written and any error encountered.
	WriteDocument(doc *model.ScrapedDocument) (int, error)

	// WriteBatch outputs the documents of a batch together with its summary.
	// summary may be nil.
	WriteBatch(result model.BatchResult, summary *model.BatchSummary) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteDocument outputs the document to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteDocument(doc *model.ScrapedDocument) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteDocument(doc)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the batch to all configured Writers.
func (m *MultiWriter) WriteBatch(result model.BatchResult, summary *model.BatchSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(result, summary)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// truncate shortens s to at most maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
