package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces an attribute value that is secret as a whole.
const MaskValue = "***REDACTED***"

// urlMask replaces only the secret parts of a URL so the rest stays readable.
const urlMask = "***"

// secretKeyParts marks an attribute key as secret when the lowercased key
// contains any of them. "key" alone is left out: cache_key, sort_key and
// friends are not secrets. api_key style keys are caught by the exact set.
var secretKeyParts = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private", "cookie", "session",
}

// secretKeys are exact key names that secretKeyParts does not cover.
var secretKeys = map[string]struct{}{
	"api_key": {}, "apikey": {}, "api-key": {}, "x-api-key": {}, "sid": {},
}

// secretValues match values that are credentials whatever their key.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
}

var (
	// scheme://user:password@ in fetched URLs and socks5 proxy addresses.
	urlUserinfo = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://[^/\s:@]+):([^/\s@]+)@`)

	// Query parameters that commonly carry credentials in page URLs.
	urlSecretQuery = regexp.MustCompile(`(?i)([?&](?:token|access_token|api_key|apikey|key|sig|signature|password|secret|auth)=)[^&\s#"]+`)
)

// SecureHandler is an slog.Handler that masks credentials before records
// reach the wrapped handler. Whole values are replaced when the key or the
// value looks secret; URLs, proxy addresses and error messages only lose
// their userinfo password and credential query parameters.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next falls back to slog.Default().Handler().
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = mask(a)
	}
	return &SecureHandler{next: h.next.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

func mask(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, g := range group {
			masked[i] = mask(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSecretKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	var s string
	switch a.Value.Kind() {
	case slog.KindString:
		s = a.Value.String()
		if isSecretValue(s) {
			return slog.String(a.Key, MaskValue)
		}
	case slog.KindAny:
		// Fetch errors quote the URL they failed on.
		err, ok := a.Value.Any().(error)
		if !ok || err == nil {
			return a
		}
		s = err.Error()
	default:
		return a
	}

	if masked := maskURLCredentials(s); masked != s {
		return slog.String(a.Key, masked)
	}
	return a
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := secretKeys[key]; ok {
		return true
	}
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func isSecretValue(s string) bool {
	for _, re := range secretValues {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// maskURLCredentials masks userinfo passwords and credential query
// parameters of every URL found in s.
func maskURLCredentials(s string) string {
	if !strings.ContainsAny(s, "@=") {
		return s
	}
	s = urlUserinfo.ReplaceAllString(s, "${1}:"+urlMask+"@")
	return urlSecretQuery.ReplaceAllString(s, "${1}"+urlMask)
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger returns a masking text logger writing to w, at Debug
// level when verbose and Warn otherwise. tornago accepts it as well.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})))
}
