package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pagegrab"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// FetchSection overrides the fetch limits.
type FetchSection struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRedirects is a pointer so that an explicit 0 disables redirects.
	MaxRedirects *int `yaml:"max_redirects,omitempty"`

	UserAgent       string `yaml:"user_agent,omitempty"`
	MaxResponseSize int64  `yaml:"max_response_size,omitempty"`
}

// RetrySection overrides the retry schedule.
type RetrySection struct {
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BaseDelay   time.Duration `yaml:"base_delay,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
}

// HostConfig holds request settings for one host.
type HostConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .pagegrab configuration file.
type File struct {
	Fetch FetchSection `yaml:"fetch,omitempty"`
	Retry RetrySection `yaml:"retry,omitempty"`

	// Hosts maps host names (without scheme or port) to their settings.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults applies to every host unless overridden in Hosts.
	Defaults HostConfig `yaml:"defaults,omitempty"`
}

// HostConfig returns the configuration for host, merging the host entry
// over the defaults. Host names are matched case-insensitively.
func (f *File) HostConfig(host string) HostConfig {
	result := HostConfig{Cookie: f.Defaults.Cookie}
	if len(f.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(f.Defaults.Headers)
	}

	hostConfig, ok := f.Hosts[strings.ToLower(host)]
	if !ok {
		return result
	}

	if hostConfig.Cookie != "" {
		result.Cookie = hostConfig.Cookie
	}
	if len(hostConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(hostConfig.Headers))
		}
		maps.Copy(result.Headers, hostConfig.Headers)
	}
	return result
}

// Headers returns the extra request headers for host, including the
// Cookie header. It returns nil when nothing is configured.
func (f *File) Headers(host string) map[string]string {
	hc := f.HostConfig(host)
	if hc.Cookie == "" && len(hc.Headers) == 0 {
		return nil
	}

	headers := make(map[string]string, len(hc.Headers)+1)
	maps.Copy(headers, hc.Headers)
	if hc.Cookie != "" {
		headers["Cookie"] = hc.Cookie
	}
	return headers
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	hosts := make(map[string]HostConfig, len(cf.Hosts))
	for host, hc := range cf.Hosts {
		hosts[strings.ToLower(host)] = hc
	}
	cf.Hosts = hosts

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pagegrab in the current directory
// 3. Look for .pagegrab in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
