// Package fetcher retrieves web pages under size and retry limits and turns them into
// ScrapedDocuments.
//
// # Lifecycle
//
// A Fetcher owns one HTTP client with connection pooling. The client exists
// only between Open and Close; fetching outside that window fails with
// KindNotInitialized. Run wraps the pair:
//
//	err := fetcher.Run(fetcher.DefaultConfig(), func(f *fetcher.Fetcher) error {
//		doc, err := f.FetchAndParse(ctx, "https://example.com")
//		...
//	}, fetcher.WithLogger(logger))
//
// # Guards
//
// Each attempt checks, in order: 429 responses (KindRateLimited, with the
// Retry-After value), the declared Content-Length against MaxResponseSize
// (KindOversizedResponse), and any other non-2xx status, unfollowed
// redirects included (KindHTTPStatus). Bodies served without a declared
// length are read in full; the size guard does not apply to them. A body
// that does not match its Content-Encoding fails with KindDecode.
//
// A Content-Type without "html", "text" or "xml" is logged and otherwise
// ignored.
//
// # Retries
//
// Only KindTimeout and KindNetwork are retried. With the default policy a
// URL gets three attempts with waits of 2s and 4s between them. Rate limits
// are returned to the caller immediately so that it can honour Retry-After.
package fetcher
