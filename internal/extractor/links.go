package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedSchemes are href prefixes that never lead to a fetchable page.
// Matching is case-sensitive.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// ExtractLinks returns the distinct absolute URLs referenced by <a href>
// elements of content, resolved against baseURL, in first-seen order.
// Links inside removed subtrees (nav, header, footer, ...) are ignored.
func ExtractLinks(baseURL, content string) []string {
	doc, err := Clean(content)
	if err != nil {
		return []string{}
	}
	return linksOf(baseURL, doc)
}

func linksOf(baseURL string, doc *goquery.Document) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		// Absolute hrefs still resolve against an empty base.
		base = &url.URL{}
	}

	links := make([]string, 0)
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		resolved := resolveURL(base, s.AttrOr("href", ""))
		if resolved == "" {
			return
		}
		if _, ok := seen[resolved]; ok {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})

	return links
}

// resolveURL resolves href against base using RFC 3986 reference resolution.
// It returns "" for hrefs that are blank, use a skipped scheme, fail to parse
// or do not produce an absolute URL.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	for _, prefix := range skippedSchemes {
		if strings.HasPrefix(href, prefix) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	if !resolved.IsAbs() {
		return ""
	}
	return resolved.String()
}
