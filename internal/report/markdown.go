package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pagegrab/internal/fetcher"
	"github.com/nao1215/pagegrab/internal/model"
)

// MarkdownWriter outputs documents in GitHub-flavored Markdown via the
// nao1215/markdown builder.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteDocument outputs one document as a Markdown page.
func (w *MarkdownWriter) WriteDocument(doc *model.ScrapedDocument) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(doc.Title)
	md.PlainText("")
	w.writeDocumentTable(md, doc)
	w.writeMeta(md, doc)
	w.writeText(md, doc)
	w.writeLinks(md, doc)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs the batch summary and a table of documents.
func (w *MarkdownWriter) WriteBatch(result model.BatchResult, summary *model.BatchSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Batch Report")
	md.PlainText("")

	if summary != nil {
		w.writeSummary(md, summary)
	}
	w.writeDocuments(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeDocumentTable writes the transport properties of a document.
func (w *MarkdownWriter) writeDocumentTable(md *markdown.Markdown, doc *model.ScrapedDocument) {
	rows := [][]string{
		{"URL", doc.URL},
		{"ID", "`" + doc.ID + "`"},
		{"Status", strconv.Itoa(doc.Metadata.StatusCode)},
		{"Content-Type", orDash(doc.Metadata.ContentType)},
		{"Encoding", doc.Metadata.Encoding},
		{"Length", strconv.Itoa(doc.Length) + " characters"},
	}
	if doc.Metadata.FinalURL != "" && doc.Metadata.FinalURL != doc.URL {
		rows = append(rows, []string{"Final URL", doc.Metadata.FinalURL})
	}
	if !doc.Metadata.FetchedAt.IsZero() {
		rows = append(rows, []string{"Fetched", doc.Metadata.FetchedAt.Format("2006-01-02 15:04:05 MST")})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMeta writes OpenGraph properties when any were found.
func (w *MarkdownWriter) writeMeta(md *markdown.Markdown, doc *model.ScrapedDocument) {
	if doc.Meta.IsEmpty() {
		return
	}

	md.H2("Page Metadata")
	md.PlainText("")

	var rows [][]string
	for _, f := range [][2]string{
		{"Description", doc.Meta.Description},
		{"Site", doc.Meta.SiteName},
		{"Type", doc.Meta.Type},
		{"Image", doc.Meta.Image},
		{"Locale", doc.Meta.Locale},
	} {
		if f[1] != "" {
			rows = append(rows, []string{f[0], cell(f[1])})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeText(md *markdown.Markdown, doc *model.ScrapedDocument) {
	md.H2("Text")
	md.PlainText("")
	if doc.Text == "" {
		md.Note("The page has no visible text.")
	} else {
		md.PlainText(doc.Text)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeLinks(md *markdown.Markdown, doc *model.ScrapedDocument) {
	md.H2("Links")
	md.PlainText("")
	if len(doc.Links) == 0 {
		md.PlainText("No links found.")
	} else {
		md.BulletList(doc.Links...)
	}
	md.PlainText("")
}

// writeSummary writes the batch accounting table, a failure chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.BatchSummary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Batch ID", "`" + summary.BatchID + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().String()},
			{"Requested", strconv.Itoa(summary.Requested)},
			{"Succeeded", strconv.Itoa(summary.Succeeded)},
			{"Failed", strconv.Itoa(summary.Failed)},
			{"Characters", strconv.Itoa(summary.TotalLength)},
		},
	})
	md.PlainText("")

	if summary.Failed > 0 {
		w.writeFailureChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writeFailureChart writes a mermaid pie chart of failures by kind.
func (w *MarkdownWriter) writeFailureChart(md *markdown.Markdown, summary *model.BatchSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Failures by Kind"),
		piechart.WithShowData(true),
	)

	for _, kind := range summary.FailureKinds() {
		if n := summary.FailuresByKind[kind]; n > 0 {
			chart.LabelAndIntValue(kind, uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.BatchSummary) {
	switch {
	case summary.Requested > 0 && summary.Succeeded == 0:
		md.Cautionf("Every one of the %d requested URLs failed.", summary.Requested)
	case summary.FailuresByKind[fetcher.KindRateLimited.String()] > 0:
		md.Warningf("%d URL(s) were rate limited. Retry them after the advertised delay.",
			summary.FailuresByKind[fetcher.KindRateLimited.String()])
	case summary.Failed > 0:
		md.Importantf("%d of %d URLs failed and were dropped.", summary.Failed, summary.Requested)
	default:
		md.Tip("All requested URLs were fetched.")
	}
	md.PlainText("")
}

// writeDocuments writes one table row per document in completion order.
func (w *MarkdownWriter) writeDocuments(md *markdown.Markdown, result model.BatchResult) {
	md.H2("Documents")
	md.PlainText("")

	if len(result) == 0 {
		md.PlainText("No documents fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result))
	for i, doc := range result {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			cell(truncate(doc.Title, 60)),
			doc.URL,
			strconv.Itoa(doc.Length),
			strconv.Itoa(len(doc.Links)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "URL", "Length", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [pagegrab](https://github.com/nao1215/pagegrab)*")
}

// cell escapes pipes so a value cannot break a table row.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
