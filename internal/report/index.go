package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pagegrab/internal/model"
)

// IndexWriter outputs one {id, title, content} JSON object per line, the
// shape retrieval indexes ingest.
type IndexWriter struct {
	baseWriter
}

// NewIndexWriter creates an IndexWriter that outputs to the given writer.
func NewIndexWriter(output io.Writer) *IndexWriter {
	return &IndexWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteDocument outputs the index record of doc as a single line.
func (w *IndexWriter) WriteDocument(doc *model.ScrapedDocument) (int, error) {
	return w.writeLine(doc.IndexDocument())
}

// WriteBatch outputs one line per document. The summary is not part of
// the index format and is ignored.
func (w *IndexWriter) WriteBatch(result model.BatchResult, _ *model.BatchSummary) (int, error) {
	var total int
	for _, rec := range result.IndexDocuments() {
		n, err := w.writeLine(rec)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (w *IndexWriter) writeLine(rec model.IndexDocument) (int, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	return w.output.Write(append(data, '\n'))
}
