package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the conventional config file name, relative to the working
// directory.
const DefaultPath = "config.yaml"

// FileConfig represents the structure of config.yaml. Pointer fields tell an
// explicit zero apart from a missing key.
type FileConfig struct {
	Scraping struct {
		Delay      *float64 `yaml:"delay"`
		Timeout    *float64 `yaml:"timeout"`
		UserAgent  *string  `yaml:"user_agent"`
		MaxRetries *int     `yaml:"max_retries"`
	} `yaml:"scraping"`
	Output struct {
		Format    *string `yaml:"format"`
		Directory *string `yaml:"directory"`
		Database  *string `yaml:"database"`
	} `yaml:"output"`
}

// LoadConfigFile loads configuration from the YAML file at path. Returns nil
// if the file doesn't exist (not an error). Returns error if the file exists
// but cannot be read, parsed, or validated. Keys missing from the file keep
// their default values.
func LoadConfigFile(path string) (*JobConfig, error) {
	// Check if file exists
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil // File doesn't exist -- not an error
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML, rejecting keys we don't know about so typos surface
	var raw FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg, err := raw.apply(Default())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load returns the configuration at path, falling back to Default when the
// file is missing or unreadable. A malformed file is an error.
func Load(path string, logger *slog.Logger) (JobConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			logger.Warn("config file unreadable, using defaults", "path", path, "error", err)
			return Default(), nil
		}
		return JobConfig{}, err
	}
	if cfg == nil {
		logger.Warn("config file not found, using defaults", "path", path)
		return Default(), nil
	}

	logger.Debug("loaded config", "path", path)
	return *cfg, nil
}

// apply overlays the values present in the file onto base.
func (fc FileConfig) apply(base JobConfig) (JobConfig, error) {
	cfg := base

	if fc.Scraping.Delay != nil {
		d, err := seconds("scraping.delay", *fc.Scraping.Delay)
		if err != nil {
			return cfg, err
		}
		cfg.Delay = d
	}
	if fc.Scraping.Timeout != nil {
		d, err := seconds("scraping.timeout", *fc.Scraping.Timeout)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}
	if fc.Scraping.UserAgent != nil {
		cfg.UserAgent = *fc.Scraping.UserAgent
	}
	if fc.Scraping.MaxRetries != nil {
		cfg.MaxRetries = *fc.Scraping.MaxRetries
	}

	if fc.Output.Format != nil {
		format, err := ParseOutputFormat(*fc.Output.Format)
		if err != nil {
			return cfg, err
		}
		cfg.Format = format
	}
	if fc.Output.Directory != nil {
		cfg.Directory = *fc.Output.Directory
	}
	if fc.Output.Database != nil {
		cfg.Database = *fc.Output.Database
	}

	return cfg, nil
}

// seconds converts a numeric seconds value to a duration.
func seconds(key string, v float64) (time.Duration, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number of seconds", ErrInvalidConfig, key)
	}
	ns := v * float64(time.Second)
	if math.Abs(ns) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidConfig, key)
	}
	return time.Duration(ns), nil
}
