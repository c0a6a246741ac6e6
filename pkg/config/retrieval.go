package config

import (
	"strings"
	"sync"
)

const (
	// SectionIDRetrieval is the identifier for the retrieval settings section
	SectionIDRetrieval = "retrieval"

	// DefaultModel is used when no model is configured anywhere.
	DefaultModel = "gpt-4o-mini"
)

// RetrievalSection holds the credentials and document store used to answer
// fields.
type RetrievalSection struct {
	APIKey          string
	BaseURL         string
	Model           string
	DocumentStoreID string
	mu              sync.RWMutex
}

// NewRetrievalSection creates a retrieval section with default settings.
func NewRetrievalSection() *RetrievalSection {
	return &RetrievalSection{Model: DefaultModel}
}

// ID returns the section identifier.
func (s *RetrievalSection) ID() string {
	return SectionIDRetrieval
}

// Title returns the section title.
func (s *RetrievalSection) Title() string {
	return "Retrieval"
}

// Description returns the section description.
func (s *RetrievalSection) Description() string {
	return "API credentials, model and the document store (vector store) answers are retrieved from."
}

// Data returns the current configuration data.
func (s *RetrievalSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"api_key":           s.APIKey,
		"base_url":          s.BaseURL,
		"model":             s.Model,
		"document_store_id": s.DocumentStoreID,
	}
}

// SetData updates the configuration from the provided data.
func (s *RetrievalSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["api_key"].(string); ok {
		s.APIKey = v
	}
	if v, ok := data["base_url"].(string); ok {
		s.BaseURL = v
	}
	if v, ok := data["model"].(string); ok && v != "" {
		s.Model = v
	}
	if v, ok := data["document_store_id"].(string); ok {
		s.DocumentStoreID = v
	}
	return nil
}

// Validate validates the current configuration. Credentials may be supplied
// by flags or environment at run time, so empty values are allowed here.
func (s *RetrievalSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.BaseURL != "" && !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return errInvalid("base_url must be an http(s) URL")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *RetrievalSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = ""
	s.BaseURL = ""
	s.Model = DefaultModel
	s.DocumentStoreID = ""
}

// GetAPIKey returns the configured API key.
func (s *RetrievalSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// SetAPIKey sets the API key.
func (s *RetrievalSection) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = apiKey
}

// GetBaseURL returns the configured base URL.
func (s *RetrievalSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetModel returns the configured model name.
func (s *RetrievalSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// SetModel sets the model name.
func (s *RetrievalSection) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// GetDocumentStoreID returns the configured document store.
func (s *RetrievalSection) GetDocumentStoreID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DocumentStoreID
}

// SetDocumentStoreID sets the document store.
func (s *RetrievalSection) SetDocumentStoreID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DocumentStoreID = id
}
