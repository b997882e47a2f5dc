package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/pagegrab/internal/model"
	"golang.org/x/net/html"
)

// ErrMalformedDocument is returned when the HTML could not be processed at all.
var ErrMalformedDocument = errors.New("malformed document")

// noiseSelector matches the subtrees removed before extraction.
const noiseSelector = "script, style, noscript, iframe, header, footer, nav"

// Result holds everything extracted from one HTML document.
type Result struct {
	// Title is never empty; model.UntitledTitle is the last resort.
	Title string

	// Text is the visible text with whitespace runs collapsed to one space.
	Text string

	// Links are distinct absolute URLs in first-seen order.
	Links []string

	// Meta holds OpenGraph properties.
	Meta model.PageMeta
}

// Clean parses content and removes non-content subtrees.
// The html parser never rejects input, so an error here means the reader failed.
func Clean(content string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	doc.Find(noiseSelector).Remove()
	return doc, nil
}

// Extract runs every extraction over content in a single parse.
// baseURL resolves relative links. A panic raised while walking the tree is
// converted into an error wrapping ErrMalformedDocument.
func Extract(baseURL, content string) (*Result, error) {
	return extract(content, func(doc *goquery.Document) *Result {
		return &Result{
			Title: ExtractTitle(doc),
			Text:  textOf(doc),
			Links: linksOf(baseURL, doc),
			Meta:  ExtractMeta(content),
		}
	})
}

func extract(content string, build func(*goquery.Document) *Result) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	doc, err := Clean(content)
	if err != nil {
		return nil, err
	}
	return build(doc), nil
}

// ExtractTitle picks a title from a cleaned document. Sources are tried in
// order and the first with non-blank text wins: the first <title>, the first
// <h1>, the og:title meta property, then the first of h1/h2/h3 in document
// order. When none qualifies the result is model.UntitledTitle.
func ExtractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if og := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).First().AttrOr("content", "")); og != "" {
		return og
	}

	var heading string
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		heading = strings.TrimSpace(s.Text())
		return heading == ""
	})
	if heading != "" {
		return heading
	}

	return model.UntitledTitle
}

// ExtractText returns the visible text of content with every whitespace run
// collapsed into a single space. Comments are not text.
func ExtractText(content string) string {
	doc, err := Clean(content)
	if err != nil {
		return ""
	}
	return textOf(doc)
}

func textOf(doc *goquery.Document) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
