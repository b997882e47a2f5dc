package fetcher

import (
	"errors"
	"time"
)

// Default fetch settings.
const (
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRedirects is the number of redirects followed before giving up.
	DefaultMaxRedirects = 5

	// DefaultUserAgent identifies as a desktop Chrome browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/119.0 Safari/537.36"

	// DefaultMaxResponseSize is the largest declared body accepted (10 MiB).
	DefaultMaxResponseSize int64 = 10 * 1024 * 1024
)

// Configuration validation errors.
var (
	ErrInvalidTimeout         = errors.New("timeout must be positive")
	ErrInvalidMaxRedirects    = errors.New("max redirects must not be negative")
	ErrInvalidMaxResponseSize = errors.New("max response size must be positive")
)

// Config holds the settings of one Fetcher. It is read-only after the
// fetcher is created.
type Config struct {
	// Timeout bounds each HTTP attempt, including reading the body.
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed. Zero disables redirects.
	MaxRedirects int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxResponseSize rejects responses whose declared Content-Length is larger.
	MaxResponseSize int64
}

// DefaultConfig returns the standard fetch settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxRedirects:    DefaultMaxRedirects,
		UserAgent:       DefaultUserAgent,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.MaxResponseSize <= 0 {
		return ErrInvalidMaxResponseSize
	}
	return nil
}
