package main

import (
	"fmt"
	"os"
	"time"

	"github.com/entrhq/formfill/pkg/config"
	"github.com/entrhq/formfill/pkg/logging"
	"github.com/entrhq/formfill/pkg/security/sites"
	"gopkg.in/yaml.v3"
)

// RunConfig is the optional YAML run file.
type RunConfig struct {
	// Target: exactly one of URL or File.
	URL  string `yaml:"url"`
	File string `yaml:"file"`

	// Output is where the filled document is written.
	Output string `yaml:"output"`

	// Headless controls the browser window for URL targets.
	Headless bool `yaml:"headless"`

	Autofill AutofillConfig `yaml:"autofill"`
	Sites    SitesConfig    `yaml:"sites"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AutofillConfig overrides engine tuning. Zero values keep the saved
// settings.
type AutofillConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	Concurrency    int           `yaml:"concurrency"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	HoverDebounce  time.Duration `yaml:"hover_debounce"`
}

// SitesConfig replaces the saved site lists when either list is set.
type SitesConfig struct {
	Allowed []string `yaml:"allowed"`
	Blocked []string `yaml:"blocked"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity"`
}

// DefaultRunConfig returns the settings used without a run file.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Headless: true,
		Logging:  LoggingConfig{Verbosity: "normal"},
	}
}

// Validate validates the configuration
func (c *RunConfig) Validate() error {
	if c.URL != "" && c.File != "" {
		return fmt.Errorf("url and file are mutually exclusive")
	}
	if c.URL == "" && c.File == "" {
		return fmt.Errorf("a target url or file is required")
	}

	if c.Autofill.BatchSize < 0 {
		return fmt.Errorf("batch_size cannot be negative")
	}
	if c.Autofill.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	if c.Autofill.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts cannot be negative")
	}
	if c.Autofill.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}
	if c.Autofill.HoverDebounce < 0 {
		return fmt.Errorf("hover_debounce cannot be negative")
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	if _, ok := verbosityLevels[c.Logging.Verbosity]; !ok {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	if _, err := sites.NewPolicy(c.Sites.Allowed, c.Sites.Blocked); err != nil {
		return err
	}
	return nil
}

var verbosityLevels = map[string]logging.Level{
	"quiet":   logging.LevelError,
	"normal":  logging.LevelInfo,
	"verbose": logging.LevelInfo,
	"debug":   logging.LevelDebug,
}

// LogLevel maps verbosity to a logger level.
func (c *RunConfig) LogLevel() logging.Level {
	if level, ok := verbosityLevels[c.Logging.Verbosity]; ok {
		return level
	}
	return logging.LevelInfo
}

// ApplyTuning overlays the non-zero autofill settings onto t.
func (c *RunConfig) ApplyTuning(t config.Tuning) config.Tuning {
	if c.Autofill.BatchSize > 0 {
		t.BatchSize = c.Autofill.BatchSize
	}
	if c.Autofill.Concurrency > 0 {
		t.Concurrency = c.Autofill.Concurrency
	}
	if c.Autofill.MaxAttempts > 0 {
		t.MaxAttempts = c.Autofill.MaxAttempts
	}
	if c.Autofill.RequestTimeout > 0 {
		t.RequestTimeout = c.Autofill.RequestTimeout
	}
	if c.Autofill.HoverDebounce > 0 {
		t.HoverDebounce = c.Autofill.HoverDebounce
	}
	return t
}

// SitePolicy returns the run file's policy, or fallback when the run file
// sets no lists.
func (c *RunConfig) SitePolicy(fallback *sites.Policy) (*sites.Policy, error) {
	if len(c.Sites.Allowed) == 0 && len(c.Sites.Blocked) == 0 {
		return fallback, nil
	}
	return sites.NewPolicy(c.Sites.Allowed, c.Sites.Blocked)
}

// loadRunConfig reads a run file over the defaults.
func loadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	rc := DefaultRunConfig()
	if err := yaml.Unmarshal(data, rc); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}
	return rc, nil
}
