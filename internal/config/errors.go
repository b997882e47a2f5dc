package config

import "errors"

// Configuration validation errors returned by Config.Validate().
var (
	// ErrNoURL is returned when neither a positional URL nor --list provides a URL.
	ErrNoURL = errors.New("no URL specified: provide a URL or use --list")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect limit is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidMaxResponseSize is returned when the response size cap is not positive.
	ErrInvalidMaxResponseSize = errors.New("invalid max response size: must be positive")

	// ErrInvalidRetryAttempts is returned when fewer than one attempt is configured.
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be at least 1")

	// ErrConflictingOutputFormats is returned when more than one of
	// --json, --markdown and --index is specified.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: choose one of --json, --markdown or --index")

	// ErrInvalidLimit is returned when the batch limit is negative.
	// Use 0 for no limit.
	ErrInvalidLimit = errors.New("invalid limit: must be non-negative")

	// ErrInvalidMinLength is returned when the minimum text length is negative.
	ErrInvalidMinLength = errors.New("invalid min length: must be non-negative")

	// ErrConflictingProxies is returned when both --proxy and --tor are specified.
	ErrConflictingProxies = errors.New("conflicting proxies: --proxy and --tor cannot be used together")
)
