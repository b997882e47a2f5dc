package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/pagegrab/internal/extractor"
	"github.com/nao1215/pagegrab/internal/metrics"
	"github.com/nao1215/pagegrab/internal/model"
)

// Request header values sent with every fetch.
const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.9"
)

// DialContextFunc dials a network connection, for example through a SOCKS5 proxy.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ExtractFunc turns a fetched HTML body into an extraction result.
type ExtractFunc func(baseURL, content string) (*extractor.Result, error)

// HeaderFunc returns extra request headers for a host. A nil map adds nothing.
type HeaderFunc func(host string) map[string]string

// Fetcher retrieves web pages with a single shared HTTP client.
//
// A Fetcher must be opened before use and closed afterwards; Run does both.
// Once open, it is safe for concurrent use by many goroutines.
type Fetcher struct {
	config      Config
	retryPolicy RetryPolicy
	logger      *slog.Logger
	metrics     *metrics.Collector
	transport   http.RoundTripper
	dialContext DialContextFunc
	headers     HeaderFunc
	extract     ExtractFunc

	mu     sync.RWMutex
	client *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(f *Fetcher) {
		f.retryPolicy = p
	}
}

// WithTransport sets the round tripper used by the client.
// It takes precedence over WithDialContext.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// WithDialContext routes all connections through dial.
func WithDialContext(dial DialContextFunc) Option {
	return func(f *Fetcher) {
		f.dialContext = dial
	}
}

// WithHeaders adds per-host request headers. Headers returned by fn override
// the defaults, including User-Agent.
func WithHeaders(fn HeaderFunc) Option {
	return func(f *Fetcher) {
		f.headers = fn
	}
}

// WithMetrics records fetch activity in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(f *Fetcher) {
		f.metrics = c
	}
}

// WithExtractor replaces extractor.Extract as the parser used by FetchAndParse.
func WithExtractor(fn ExtractFunc) Option {
	return func(f *Fetcher) {
		f.extract = fn
	}
}

// New creates a Fetcher. The HTTP client is not created until Open is called.
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &Fetcher{
		config:      cfg,
		retryPolicy: DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.extract == nil {
		f.extract = extractor.Extract
	}
	return f, nil
}

// Config returns the fetcher's configuration.
func (f *Fetcher) Config() Config {
	return f.config
}

// Open creates the shared HTTP client. Calling Open on an open fetcher is a no-op.
func (f *Fetcher) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return nil
	}

	rt := f.transport
	if rt == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
		transport.MaxIdleConns = 100
		transport.MaxIdleConnsPerHost = 10
		transport.IdleConnTimeout = 90 * time.Second
		// Compression is negotiated and decoded by readBody.
		transport.DisableCompression = true
		if f.dialContext != nil {
			transport.DialContext = f.dialContext
			transport.Proxy = nil
		}
		rt = transport
	}
	if f.headers != nil {
		rt = &headerInjectingTransport{base: rt, headers: f.headers}
	}

	maxRedirects := f.config.MaxRedirects
	f.client = &http.Client{
		Transport: rt,
		Timeout:   f.config.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, maxRedirects)
			}
			return nil
		},
	}

	f.logger.Debug("fetcher opened",
		"timeout", f.config.Timeout,
		"max_redirects", f.config.MaxRedirects,
		"max_response_size", f.config.MaxResponseSize,
	)
	return nil
}

// Close releases the client and its idle connections. It is safe to call
// more than once and on a fetcher that was never opened.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return nil
	}
	f.client.CloseIdleConnections()
	f.client = nil
	f.logger.Debug("fetcher closed")
	return nil
}

// Run opens a fetcher for cfg, passes it to fn, and closes it when fn returns,
// whether fn succeeds, fails or panics.
func Run(cfg Config, fn func(*Fetcher) error, opts ...Option) error {
	f, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := f.Open(); err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Close never fails

	return fn(f)
}

// FetchOnce opens a fetcher, fetches and parses a single URL, and closes it.
func FetchOnce(ctx context.Context, cfg Config, rawURL string, opts ...Option) (*model.ScrapedDocument, error) {
	var doc *model.ScrapedDocument
	err := Run(cfg, func(f *Fetcher) error {
		var err error
		doc, err = f.FetchAndParse(ctx, rawURL)
		return err
	}, opts...)
	return doc, err
}

func (f *Fetcher) httpClient() *http.Client {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.client
}

// FetchRaw retrieves rawURL and returns the body decoded to UTF-8 text along
// with transport metadata. Timeouts and network failures are retried
// according to the retry policy; every other failure is returned at once.
func (f *Fetcher) FetchRaw(ctx context.Context, rawURL string) (string, model.TransportMetadata, error) {
	client := f.httpClient()
	if client == nil {
		return "", model.TransportMetadata{}, newError(KindNotInitialized, rawURL, nil)
	}

	start := time.Now()
	var (
		body string
		md   model.TransportMetadata
	)
	err := f.retry(ctx, rawURL, func() error {
		var err error
		body, md, err = f.fetchOnce(ctx, client, rawURL)
		return err
	})
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		f.metrics.ObserveFailure(KindOf(err).String())
		return "", model.TransportMetadata{}, err
	}
	return body, md, nil
}

// FetchAndParse fetches rawURL and extracts a ScrapedDocument from it.
// The document ID depends only on rawURL.
func (f *Fetcher) FetchAndParse(ctx context.Context, rawURL string) (*model.ScrapedDocument, error) {
	body, md, err := f.FetchRaw(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	res, err := f.extract(rawURL, body)
	if err != nil {
		f.metrics.ObserveFailure(KindExtraction.String())
		return nil, newError(KindExtraction, rawURL, err)
	}

	doc := model.NewScrapedDocument(rawURL, res.Title, res.Text, res.Links, res.Meta, md)
	f.metrics.ObserveDocument()
	f.logger.Debug("document extracted",
		"url", rawURL,
		"title", doc.Title,
		"length", doc.Length,
		"links", len(doc.Links),
	)
	return doc, nil
}

// fetchOnce performs a single HTTP attempt.
func (f *Fetcher) fetchOnce(ctx context.Context, client *http.Client, rawURL string) (string, model.TransportMetadata, error) {
	if err := validateURL(rawURL); err != nil {
		return "", model.TransportMetadata{}, newError(KindInvalidURL, rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", model.TransportMetadata{}, newError(KindInvalidURL, rawURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := client.Do(req)
	if err != nil {
		return "", model.TransportMetadata{}, classifyTransportError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		if retryAfter == "" {
			retryAfter = DefaultRetryAfter
		}
		f.logger.Warn("rate limited", "url", rawURL, "retry_after", retryAfter)
		return "", model.TransportMetadata{}, &Error{
			Kind:       KindRateLimited,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter,
		}
	}

	declared := declaredLength(resp)
	if declared > f.config.MaxResponseSize {
		return "", model.TransportMetadata{}, &Error{
			Kind:         KindOversizedResponse,
			URL:          rawURL,
			StatusCode:   resp.StatusCode,
			DeclaredSize: declared,
			Limit:        f.config.MaxResponseSize,
		}
	}

	// Redirects the client chose not to follow (304, 300, a 3xx without
	// Location) end up here too.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", model.TransportMetadata{}, &Error{
			Kind:       KindHTTPStatus,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		f.logger.Warn("unexpected content type", "url", rawURL, "content_type", contentType)
	}

	raw, err := readBody(resp)
	if err != nil {
		var de *decodeError
		if errors.As(err, &de) {
			return "", model.TransportMetadata{}, newError(KindDecode, rawURL, de.err)
		}
		return "", model.TransportMetadata{}, classifyTransportError(rawURL, err)
	}
	text, enc := decodeText(raw, contentType)

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return text, model.TransportMetadata{
		StatusCode:    resp.StatusCode,
		ContentType:   contentType,
		Encoding:      enc,
		FetchedAt:     time.Now().UTC(),
		FinalURL:      finalURL,
		ContentLength: declared,
	}, nil
}

// validateURL accepts absolute http and https URLs with a host.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// declaredLength returns the Content-Length declared by the server, or -1.
func declaredLength(resp *http.Response) int64 {
	if v := strings.TrimSpace(resp.Header.Get("Content-Length")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return -1
}

// isTextual reports whether a content type looks like a document.
func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "text") || strings.Contains(ct, "xml")
}

// classifyTransportError maps errors from the HTTP client into fetcher errors.
func classifyTransportError(rawURL string, err error) *Error {
	if errors.Is(err, ErrTooManyRedirects) {
		return newError(KindTooManyRedirects, rawURL, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, rawURL, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, rawURL, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return newError(KindInvalidURL, rawURL, err)
	}
	return newError(KindNetwork, rawURL, err)
}
