package config

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// SectionIDAutofill is the identifier for the autofill tuning section
const SectionIDAutofill = "autofill"

// Autofill defaults.
const (
	DefaultBatchSize        = 4
	DefaultConcurrency      = 2
	DefaultMaxAttempts      = 3
	DefaultBaseDelayMS      = 400
	DefaultMaxDelayMS       = 5000
	DefaultJitterMS         = 200
	DefaultRequestTimeoutMS = 30000
	DefaultHoverDebounceMS  = 350
)

func errInvalid(msg string) error {
	return errors.New(msg)
}

// AutofillSection tunes batching, concurrency, retry and timing.
type AutofillSection struct {
	BatchSize        int
	Concurrency      int
	MaxAttempts      int
	BaseDelayMS      int
	MaxDelayMS       int
	JitterMS         int
	RequestTimeoutMS int
	HoverDebounceMS  int
	mu               sync.RWMutex
}

// NewAutofillSection creates an autofill section with default settings.
func NewAutofillSection() *AutofillSection {
	s := &AutofillSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *AutofillSection) ID() string {
	return SectionIDAutofill
}

// Title returns the section title.
func (s *AutofillSection) Title() string {
	return "Autofill"
}

// Description returns the section description.
func (s *AutofillSection) Description() string {
	return "Batch size, concurrent batches, retry budget and backoff, request timeout and hover debounce."
}

// Data returns the current configuration data.
func (s *AutofillSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"batch_size":         s.BatchSize,
		"concurrency":        s.Concurrency,
		"max_attempts":       s.MaxAttempts,
		"base_delay_ms":      s.BaseDelayMS,
		"max_delay_ms":       s.MaxDelayMS,
		"jitter_ms":          s.JitterMS,
		"request_timeout_ms": s.RequestTimeoutMS,
		"hover_debounce_ms":  s.HoverDebounceMS,
	}
}

// SetData updates the configuration from the provided data. Numbers decoded
// from JSON arrive as float64.
func (s *AutofillSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string]*int{
		"batch_size":         &s.BatchSize,
		"concurrency":        &s.Concurrency,
		"max_attempts":       &s.MaxAttempts,
		"base_delay_ms":      &s.BaseDelayMS,
		"max_delay_ms":       &s.MaxDelayMS,
		"jitter_ms":          &s.JitterMS,
		"request_timeout_ms": &s.RequestTimeoutMS,
		"hover_debounce_ms":  &s.HoverDebounceMS,
	}
	for key, dst := range fields {
		raw, ok := data[key]
		if !ok {
			continue
		}
		n, err := toInt(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

// Validate validates the current configuration.
func (s *AutofillSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.BatchSize < 1:
		return errInvalid("batch_size must be at least 1")
	case s.Concurrency < 1:
		return errInvalid("concurrency must be at least 1")
	case s.MaxAttempts < 1:
		return errInvalid("max_attempts must be at least 1")
	case s.BaseDelayMS < 0 || s.MaxDelayMS < 0 || s.JitterMS < 0:
		return errInvalid("delays must not be negative")
	case s.MaxDelayMS < s.BaseDelayMS:
		return errInvalid("max_delay_ms must not be below base_delay_ms")
	case s.RequestTimeoutMS < 1:
		return errInvalid("request_timeout_ms must be positive")
	case s.HoverDebounceMS < 0:
		return errInvalid("hover_debounce_ms must not be negative")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *AutofillSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BatchSize = DefaultBatchSize
	s.Concurrency = DefaultConcurrency
	s.MaxAttempts = DefaultMaxAttempts
	s.BaseDelayMS = DefaultBaseDelayMS
	s.MaxDelayMS = DefaultMaxDelayMS
	s.JitterMS = DefaultJitterMS
	s.RequestTimeoutMS = DefaultRequestTimeoutMS
	s.HoverDebounceMS = DefaultHoverDebounceMS
}

// Tuning is a snapshot of the section in duration form.
type Tuning struct {
	BatchSize      int
	Concurrency    int
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Jitter         time.Duration
	RequestTimeout time.Duration
	HoverDebounce  time.Duration
}

// DefaultTuning returns the built-in defaults.
func DefaultTuning() Tuning {
	return NewAutofillSection().Tuning()
}

// Tuning returns the current settings.
func (s *AutofillSection) Tuning() Tuning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return Tuning{
		BatchSize:      s.BatchSize,
		Concurrency:    s.Concurrency,
		MaxAttempts:    s.MaxAttempts,
		BaseDelay:      ms(s.BaseDelayMS),
		MaxDelay:       ms(s.MaxDelayMS),
		Jitter:         ms(s.JitterMS),
		RequestTimeout: ms(s.RequestTimeoutMS),
		HoverDebounce:  ms(s.HoverDebounceMS),
	}
}
