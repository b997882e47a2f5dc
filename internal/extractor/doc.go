// Package extractor turns raw HTML into a title, normalized visible text,
// absolute outbound links and OpenGraph metadata.
//
// All functions are pure and safe for concurrent use. Parsing is permissive:
// malformed markup yields best-effort results rather than errors.
//
// # Cleaning
//
// Before any extraction the document is stripped of the subtrees that do not
// carry page content: script, style, noscript, iframe, header, footer and nav.
// Titles inside a removed header therefore do not count.
//
// # Usage
//
//	res, err := extractor.Extract("https://example.com", body)
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Title, len(res.Links))
package extractor
