package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/pagegrab/internal/fetcher"
)

// Default configuration values. Fetch limits mirror the fetcher defaults.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pagegrab"

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = fetcher.DefaultTimeout

	// DefaultMaxRedirects is the number of redirects followed per request.
	DefaultMaxRedirects = fetcher.DefaultMaxRedirects

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = fetcher.DefaultUserAgent

	// DefaultMaxResponseSize rejects responses declaring more than 10 MiB.
	DefaultMaxResponseSize = fetcher.DefaultMaxResponseSize

	// DefaultRetryAttempts is the total number of attempts for transient failures.
	DefaultRetryAttempts = 3

	// DefaultRetryBaseDelay is the wait before the first retry.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultRetryMaxDelay caps any single retry wait.
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultHistoryLimit is how many stored documents `history` lists.
	DefaultHistoryLimit = 20
)

// Config holds all configuration options for pagegrab.
// It is populated from CLI flags, optionally overlaid with the .pagegrab
// file, and passed down explicitly rather than kept in global state.
type Config struct {
	// URLs is the list of URLs to fetch, in submission order.
	URLs []string

	// ListFile is a file with one URL per line, read by the batch command.
	ListFile string

	// Limit truncates the URL list before a batch starts. Zero means no limit.
	Limit int

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed. Zero disables redirects.
	MaxRedirects int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxResponseSize rejects responses whose declared length is larger.
	MaxResponseSize int64

	// RetryAttempts is the total number of attempts, including the first.
	RetryAttempts int

	// RetryBaseDelay is the wait before the first retry; later waits double.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps any single retry wait.
	RetryMaxDelay time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .pagegrab in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, or nil when none was found.
	File *File

	// JSONReport selects JSON output.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// IndexReport selects JSON lines of {id, title, content}.
	IndexReport bool

	// ReportFile is the output file path. Stdout is used when empty.
	ReportFile string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/pagegrab on Linux).
	DBDir string

	// SaveToDB controls whether documents, failures and batches are persisted.
	SaveToDB bool

	// MinLength drops documents with fewer characters of text. Zero keeps all.
	MinLength int

	// SkipUnchanged drops documents whose content matches the stored copy.
	SkipUnchanged bool

	// ProxyAddress is a SOCKS5 proxy in "host:port" form. Empty means direct.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// MetricsFile receives Prometheus textfile metrics when set.
	MetricsFile string

	// ExportFile receives one index line per accepted document, appended as
	// each document completes.
	ExportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		MaxRedirects:      DefaultMaxRedirects,
		UserAgent:         DefaultUserAgent,
		MaxResponseSize:   DefaultMaxResponseSize,
		RetryAttempts:     DefaultRetryAttempts,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// XDGDataDir returns the XDG data directory for pagegrab.
// On Linux: ~/.local/share/pagegrab
// On macOS: ~/Library/Application Support/pagegrab
// On Windows: %LOCALAPPDATA%\pagegrab
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagegrab.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for pagegrab.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package's sentinel errors.
func (c *Config) Validate() error {
	if len(c.URLs) == 0 && c.ListFile == "" {
		return ErrNoURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.MaxResponseSize <= 0 {
		return ErrInvalidMaxResponseSize
	}
	if c.RetryAttempts < 1 {
		return ErrInvalidRetryAttempts
	}
	if c.outputFormats() > 1 {
		return ErrConflictingOutputFormats
	}
	if c.Limit < 0 {
		return ErrInvalidLimit
	}
	if c.MinLength < 0 {
		return ErrInvalidMinLength
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxies
	}
	return nil
}

func (c *Config) outputFormats() int {
	n := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.IndexReport} {
		if set {
			n++
		}
	}
	return n
}

// FetcherConfig returns the fetch settings for a fetcher.Fetcher.
func (c *Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		Timeout:         c.Timeout,
		MaxRedirects:    c.MaxRedirects,
		UserAgent:       c.UserAgent,
		MaxResponseSize: c.MaxResponseSize,
	}
}

// RetryPolicy returns the retry schedule for a fetcher.Fetcher.
func (c *Config) RetryPolicy() fetcher.RetryPolicy {
	return fetcher.RetryPolicy{
		MaxAttempts: c.RetryAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
	}
}

// HeaderFunc returns the per-host header lookup for a fetcher.Fetcher,
// or nil when no configuration file is loaded.
func (c *Config) HeaderFunc() fetcher.HeaderFunc {
	if c.File == nil {
		return nil
	}
	return c.File.Headers
}

// ApplyFile overlays settings from f. Fields whose CLI flag was set
// explicitly, as reported by changed, keep their flag value.
func (c *Config) ApplyFile(f *File, changed func(flag string) bool) {
	if f == nil {
		return
	}
	c.File = f

	if changed == nil {
		changed = func(string) bool { return false }
	}

	if f.Fetch.Timeout > 0 && !changed("timeout") {
		c.Timeout = f.Fetch.Timeout
	}
	if f.Fetch.MaxRedirects != nil && !changed("max-redirects") {
		c.MaxRedirects = *f.Fetch.MaxRedirects
	}
	if f.Fetch.UserAgent != "" && !changed("user-agent") {
		c.UserAgent = f.Fetch.UserAgent
	}
	if f.Fetch.MaxResponseSize > 0 && !changed("max-size") {
		c.MaxResponseSize = f.Fetch.MaxResponseSize
	}

	if f.Retry.MaxAttempts > 0 {
		c.RetryAttempts = f.Retry.MaxAttempts
	}
	if f.Retry.BaseDelay > 0 {
		c.RetryBaseDelay = f.Retry.BaseDelay
	}
	if f.Retry.MaxDelay > 0 {
		c.RetryMaxDelay = f.Retry.MaxDelay
	}
}
