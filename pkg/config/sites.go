package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/formfill/pkg/security/sites"
)

// SectionIDSites is the identifier for the site policy section
const SectionIDSites = "sites"

// SitesSection lists host or URL globs formfill may or may not run on.
type SitesSection struct {
	Allowed []string
	Blocked []string
	mu      sync.RWMutex
}

// NewSitesSection creates a sites section with no restrictions.
func NewSitesSection() *SitesSection {
	return &SitesSection{}
}

// ID returns the section identifier.
func (s *SitesSection) ID() string {
	return SectionIDSites
}

// Title returns the section title.
func (s *SitesSection) Title() string {
	return "Sites"
}

// Description returns the section description.
func (s *SitesSection) Description() string {
	return "Glob patterns for pages formfill may fill (allowed) or must never touch (blocked). Blocked wins."
}

// Data returns the current configuration data.
func (s *SitesSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"allowed": append([]string(nil), s.Allowed...),
		"blocked": append([]string(nil), s.Blocked...),
	}
}

// SetData updates the configuration from the provided data.
func (s *SitesSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["allowed"]; ok {
		list, err := toStrings(v)
		if err != nil {
			return fmt.Errorf("allowed: %w", err)
		}
		s.Allowed = list
	}
	if v, ok := data["blocked"]; ok {
		list, err := toStrings(v)
		if err != nil {
			return fmt.Errorf("blocked: %w", err)
		}
		s.Blocked = list
	}
	return nil
}

func toStrings(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), list...), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list, got %T", v)
}

// Validate compiles the patterns.
func (s *SitesSection) Validate() error {
	_, err := s.Policy()
	return err
}

// Reset resets the section to default configuration.
func (s *SitesSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Allowed = nil
	s.Blocked = nil
}

// Policy compiles the current patterns.
func (s *SitesSection) Policy() (*sites.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sites.NewPolicy(s.Allowed, s.Blocked)
}
