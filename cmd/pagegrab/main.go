// Package main provides the entry point for the pagegrab CLI.
//
// pagegrab fetches web pages, extracts their title, visible text and links,
// and emits normalized documents. Many URLs can be fetched concurrently as
// one batch; failed URLs are logged and dropped.
//
// Usage:
//
//	pagegrab fetch <url>
//	pagegrab batch <url>... | --list <file>
//	pagegrab history [id]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
