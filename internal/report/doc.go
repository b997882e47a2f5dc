// Package report renders scraped documents and batch results.
//
// Writers for the supported output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown for sharing and documentation
//   - IndexWriter: JSON lines of {id, title, content} for retrieval indexes
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
