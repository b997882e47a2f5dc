package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pagegrab/internal/model"
)

const (
	// defaultExcerptLength is how many characters of text SimpleWriter shows.
	defaultExcerptLength = 500

	// defaultLinkLimit is how many links SimpleWriter lists.
	defaultLinkLimit = 10
)

// SimpleWriter outputs human-readable text for terminal display.
// Output is plain ASCII framing with no ANSI colors so it can be piped.
type SimpleWriter struct {
	baseWriter

	// verbose prints the full text and every link.
	verbose bool

	// excerptLength bounds the text shown when not verbose.
	excerptLength int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with the full text and link list.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithExcerptLength sets how many characters of text are shown.
func WithExcerptLength(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n > 0 {
			w.excerptLength = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:    newBaseWriter(output),
		excerptLength: defaultExcerptLength,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteDocument outputs one document in human-readable format.
func (w *SimpleWriter) WriteDocument(doc *model.ScrapedDocument) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "PAGEGRAB DOCUMENT")
	w.writeDocumentHeader(&sb, doc)
	w.writeMeta(&sb, doc)
	w.writeText(&sb, doc)
	w.writeLinks(&sb, doc)
	writeRule(&sb, "=")

	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs the batch summary followed by one line per document.
func (w *SimpleWriter) WriteBatch(result model.BatchResult, summary *model.BatchSummary) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "PAGEGRAB BATCH")
	if summary != nil {
		w.writeSummary(&sb, summary)
	}

	writeSection(&sb, "DOCUMENTS")
	if len(result) == 0 {
		sb.WriteString("  No documents fetched\n")
	}
	for i, doc := range result {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", i+1, truncate(doc.Title, 60)))
		sb.WriteString(fmt.Sprintf("      %s (%d chars, %d links)\n", doc.URL, doc.Length, len(doc.Links)))
	}
	sb.WriteString("\n")
	writeRule(&sb, "=")

	return w.output.Write([]byte(sb.String()))
}

// writeDocumentHeader writes the identifying fields of a document.
func (w *SimpleWriter) writeDocumentHeader(sb *strings.Builder, doc *model.ScrapedDocument) {
	sb.WriteString(fmt.Sprintf("Title:        %s\n", doc.Title))
	sb.WriteString(fmt.Sprintf("URL:          %s\n", doc.URL))
	if doc.Metadata.FinalURL != "" && doc.Metadata.FinalURL != doc.URL {
		sb.WriteString(fmt.Sprintf("Final URL:    %s\n", doc.Metadata.FinalURL))
	}
	sb.WriteString(fmt.Sprintf("ID:           %s\n", doc.ID))
	sb.WriteString(fmt.Sprintf("Status:       %d\n", doc.Metadata.StatusCode))
	if doc.Metadata.ContentType != "" {
		sb.WriteString(fmt.Sprintf("Content-Type: %s\n", doc.Metadata.ContentType))
	}
	sb.WriteString(fmt.Sprintf("Encoding:     %s\n", doc.Metadata.Encoding))
	if !doc.Metadata.FetchedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Fetched:      %s\n", doc.Metadata.FetchedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString(fmt.Sprintf("Length:       %d characters\n", doc.Length))
	sb.WriteString("\n")
}

// writeMeta writes OpenGraph properties when any were found.
func (w *SimpleWriter) writeMeta(sb *strings.Builder, doc *model.ScrapedDocument) {
	if doc.Meta.IsEmpty() {
		return
	}

	writeSection(sb, "PAGE METADATA")
	fields := []struct {
		label string
		value string
	}{
		{"Description", doc.Meta.Description},
		{"Site", doc.Meta.SiteName},
		{"Type", doc.Meta.Type},
		{"Image", doc.Meta.Image},
		{"Locale", doc.Meta.Locale},
	}
	for _, f := range fields {
		if f.value != "" {
			sb.WriteString(fmt.Sprintf("  %-12s %s\n", f.label+":", f.value))
		}
	}
	sb.WriteString("\n")
}

// writeText writes the document text, shortened unless verbose.
func (w *SimpleWriter) writeText(sb *strings.Builder, doc *model.ScrapedDocument) {
	writeSection(sb, "TEXT")

	text := doc.Text
	if !w.verbose {
		text = truncate(text, w.excerptLength)
	}
	if text == "" {
		text = "(no text)"
	}
	sb.WriteString(text)
	sb.WriteString("\n\n")
}

// writeLinks writes the link list, capped unless verbose.
func (w *SimpleWriter) writeLinks(sb *strings.Builder, doc *model.ScrapedDocument) {
	writeSection(sb, fmt.Sprintf("LINKS (%d)", len(doc.Links)))

	links := doc.Links
	if !w.verbose && len(links) > defaultLinkLimit {
		links = links[:defaultLinkLimit]
	}
	for _, link := range links {
		sb.WriteString(fmt.Sprintf("  [+] %s\n", link))
	}
	if hidden := len(doc.Links) - len(links); hidden > 0 {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", hidden))
	}
	sb.WriteString("\n")
}

// writeSummary writes the batch accounting section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.BatchSummary) {
	writeSection(sb, "SUMMARY")

	sb.WriteString(fmt.Sprintf("  Batch ID:   %s\n", summary.BatchID))
	sb.WriteString(fmt.Sprintf("  Requested:  %d\n", summary.Requested))
	sb.WriteString(fmt.Sprintf("  Succeeded:  %d\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("  Failed:     %d\n", summary.Failed))
	for _, kind := range summary.FailureKinds() {
		sb.WriteString(fmt.Sprintf("    %-20s %d\n", kind, summary.FailuresByKind[kind]))
	}
	sb.WriteString(fmt.Sprintf("  Characters: %d\n", summary.TotalLength))
	sb.WriteString(fmt.Sprintf("  Duration:   %s\n", summary.Duration().Round(time.Millisecond)))
	sb.WriteString("\n")
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	pad := max((70-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "=")
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
	sb.WriteString("\n")
}

func writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, 70))
	sb.WriteString("\n")
}
