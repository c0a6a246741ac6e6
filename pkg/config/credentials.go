package config

import (
	"os"

	"github.com/entrhq/formfill/pkg/retrieval"
)

// Environment variables consulted when resolving credentials.
const (
	EnvAPIKey          = "OPENAI_API_KEY"
	EnvBaseURL         = "OPENAI_BASE_URL"
	EnvModel           = "FORMFILL_MODEL"
	EnvDocumentStoreID = "FORMFILL_DOCUMENT_STORE_ID"
)

// Overrides are values given on the command line. Empty fields defer to the
// next source.
type Overrides struct {
	APIKey          string
	BaseURL         string
	Model           string
	DocumentStoreID string
}

// CredentialSource resolves credentials with precedence
// CLI flags > environment variables > config file > defaults.
// The zero value reads the global config.
type CredentialSource struct {
	Overrides Overrides
	// Section replaces the global retrieval section when set.
	Section *RetrievalSection
	// Getenv replaces os.Getenv when set.
	Getenv func(string) string
}

// Credentials returns a snapshot. It does not validate; missing values are
// reported by retrieval.Credentials.Validate.
func (s CredentialSource) Credentials() (retrieval.Credentials, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	section := s.Section
	if section == nil {
		section = GetRetrieval()
	}

	var file retrieval.Credentials
	if section != nil {
		file = retrieval.Credentials{
			APIKey:          section.GetAPIKey(),
			BaseURL:         section.GetBaseURL(),
			Model:           section.GetModel(),
			DocumentStoreID: section.GetDocumentStoreID(),
		}
	}

	creds := retrieval.Credentials{
		APIKey:          first(s.Overrides.APIKey, getenv(EnvAPIKey), file.APIKey),
		BaseURL:         first(s.Overrides.BaseURL, getenv(EnvBaseURL), file.BaseURL),
		Model:           first(s.Overrides.Model, getenv(EnvModel), file.Model, DefaultModel),
		DocumentStoreID: first(s.Overrides.DocumentStoreID, getenv(EnvDocumentStoreID), file.DocumentStoreID),
	}
	return creds, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
