package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by validation failures.
var ErrInvalidConfig = errors.New("invalid config")

// OutputFormat selects which files the output writer produces.
type OutputFormat string

const (
	FormatCSV  OutputFormat = "csv"
	FormatJSON OutputFormat = "json"
	FormatBoth OutputFormat = "both"
)

// WantsCSV reports whether a CSV file should be written.
func (f OutputFormat) WantsCSV() bool {
	return f == FormatCSV || f == FormatBoth
}

// WantsJSON reports whether a JSON file should be written.
func (f OutputFormat) WantsJSON() bool {
	return f == FormatJSON || f == FormatBoth
}

// ParseOutputFormat parses a format name case-insensitively.
func ParseOutputFormat(raw string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(FormatCSV):
		return FormatCSV, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatBoth):
		return FormatBoth, nil
	default:
		return "", fmt.Errorf("%w: output.format %q (expected csv, json, both)", ErrInvalidConfig, raw)
	}
}

// JobConfig holds the operator settings for a scraping run. It is loaded once
// and treated as read-only afterwards.
type JobConfig struct {
	Delay      time.Duration
	Timeout    time.Duration
	UserAgent  string
	MaxRetries int // kept for compatibility; no retry logic reads it
	Format     OutputFormat
	Directory  string
	// Database is the path of the SQLite run archive. Empty disables it.
	Database string
}

// Default returns the configuration used when no config file is present.
func Default() JobConfig {
	return JobConfig{
		Delay:      1 * time.Second,
		Timeout:    10 * time.Second,
		UserAgent:  "WebScraper/1.0",
		MaxRetries: 3,
		Format:     FormatBoth,
		Directory:  "data",
	}
}

// Validate checks that every value is usable.
func (c JobConfig) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("%w: scraping.delay must not be negative", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: scraping.timeout must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("%w: scraping.user_agent must not be empty", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: scraping.max_retries must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseOutputFormat(string(c.Format)); err != nil {
		return err
	}
	if strings.TrimSpace(c.Directory) == "" {
		return fmt.Errorf("%w: output.directory must not be empty", ErrInvalidConfig)
	}
	return nil
}
