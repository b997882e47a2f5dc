package fetcher

import "net/http"

// headerInjectingTransport wraps an http.RoundTripper to add per-host
// headers to every request, including redirected ones.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers HeaderFunc
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	extra := t.headers(req.URL.Hostname())
	if len(extra) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	for key, value := range extra {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
