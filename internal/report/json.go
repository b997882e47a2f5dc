package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pagegrab/internal/model"
)

// JSONWriter outputs documents in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is embedded in batch reports when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the pagegrab version in batch reports.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteDocument outputs one document as a JSON object.
func (w *JSONWriter) WriteDocument(doc *model.ScrapedDocument) (int, error) {
	return w.writeJSON(doc)
}

// BatchReport is the JSON shape of a batch: its summary followed by
// every document in completion order.
type BatchReport struct {
	// Version is the pagegrab version that produced the report.
	Version string `json:"version,omitempty"`

	// Summary is omitted when the caller did not track one.
	Summary *model.BatchSummary `json:"summary,omitempty"`

	Documents []*model.ScrapedDocument `json:"documents"`
}

// WriteBatch outputs the batch wrapped in a BatchReport.
func (w *JSONWriter) WriteBatch(result model.BatchResult, summary *model.BatchSummary) (int, error) {
	docs := []*model.ScrapedDocument(result)
	if docs == nil {
		docs = []*model.ScrapedDocument{}
	}
	return w.writeJSON(&BatchReport{
		Version:   w.version,
		Summary:   summary,
		Documents: docs,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
