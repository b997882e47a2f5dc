package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is reported when a 429 response carries no Retry-After header.
const DefaultRetryAfter = "60"

// Kind classifies fetch failures. Callers branch on the kind rather than on
// error messages.
type Kind int

const (
	// KindUnknown is never produced by the fetcher itself.
	KindUnknown Kind = iota

	// KindTimeout means the request exceeded its time budget. Retried.
	KindTimeout

	// KindNetwork means the connection could not be established or broke. Retried.
	KindNetwork

	// KindRateLimited means the server answered 429. Not retried.
	KindRateLimited

	// KindOversizedResponse means the declared body size exceeds the limit.
	KindOversizedResponse

	// KindHTTPStatus means the server answered with a non-2xx status that was
	// not a followed redirect or a 429.
	KindHTTPStatus

	// KindNotInitialized means a fetch was attempted without an open client.
	KindNotInitialized

	// KindExtraction means the body was fetched but could not be parsed.
	KindExtraction

	// KindTooManyRedirects means the redirect chain exceeded MaxRedirects.
	KindTooManyRedirects

	// KindInvalidURL means no request could be built for the URL.
	KindInvalidURL

	// KindDecode means the body did not match its Content-Encoding. Not retried.
	KindDecode
)

// String returns the stable snake_case name used in logs, metrics and storage.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network_failure"
	case KindRateLimited:
		return "rate_limited"
	case KindOversizedResponse:
		return "oversized_response"
	case KindHTTPStatus:
		return "http_status"
	case KindNotInitialized:
		return "not_initialized"
	case KindExtraction:
		return "extraction_failure"
	case KindTooManyRedirects:
		return "too_many_redirects"
	case KindInvalidURL:
		return "invalid_url"
	case KindDecode:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrTimeout           = errors.New("request timed out")
	ErrNetwork           = errors.New("network failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrOversizedResponse = errors.New("response too large")
	ErrHTTPStatus        = errors.New("http error status")
	ErrNotInitialized    = errors.New("fetcher not initialized: call Open first")
	ErrExtraction        = errors.New("content extraction failed")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrInvalidURL        = errors.New("invalid url")
	ErrDecode            = errors.New("content decoding failed")
)

var sentinels = map[Kind]error{
	KindTimeout:           ErrTimeout,
	KindNetwork:           ErrNetwork,
	KindRateLimited:       ErrRateLimited,
	KindOversizedResponse: ErrOversizedResponse,
	KindHTTPStatus:        ErrHTTPStatus,
	KindNotInitialized:    ErrNotInitialized,
	KindExtraction:        ErrExtraction,
	KindTooManyRedirects:  ErrTooManyRedirects,
	KindInvalidURL:        ErrInvalidURL,
	KindDecode:            ErrDecode,
}

// Error is the error type returned by every Fetcher operation.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// URL is the URL as requested.
	URL string

	// StatusCode is set for KindHTTPStatus and KindRateLimited.
	StatusCode int

	// RetryAfter is the raw Retry-After header value for KindRateLimited,
	// or DefaultRetryAfter when the header was absent.
	RetryAfter string

	// DeclaredSize and Limit are set for KindOversizedResponse.
	DeclaredSize int64
	Limit        int64

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.URL != "" {
		b.WriteString(" fetching ")
		b.WriteString(e.URL)
	}

	switch e.Kind {
	case KindRateLimited:
		fmt.Fprintf(&b, ": retry after %s", e.RetryAfter)
	case KindOversizedResponse:
		fmt.Fprintf(&b, ": declared %d bytes exceeds limit of %d", e.DeclaredSize, e.Limit)
	case KindHTTPStatus:
		fmt.Fprintf(&b, ": status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Retryable reports whether the retry policy applies to this failure.
// Only timeouts and network failures are transient.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetwork
}

// RetryAfterDuration interprets RetryAfter as delta-seconds or an HTTP-date.
// It returns false when the value is neither.
func (e *Error) RetryAfterDuration() (time.Duration, bool) {
	return parseRetryAfter(e.RetryAfter, time.Now())
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// KindOf returns the kind of a fetcher error, or KindUnknown for anything else.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func newError(kind Kind, rawURL string, cause error) *Error {
	return &Error{Kind: kind, URL: rawURL, Err: cause}
}
