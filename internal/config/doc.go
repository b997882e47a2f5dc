// Package config provides configuration structures and utilities for pagegrab.
// It defines the fetch limits, retry schedule, output and storage options,
// and the optional .pagegrab file with per-host request headers.
package config
