// Package llm provides abstractions for the retrieval-backed model call.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := provider.Respond(ctx, &llm.Request{
//	    Messages: []*types.Message{
//	        types.NewSystemMessage("Answer from the documents."),
//	        types.NewUserMessage("What is the applicant's email?"),
//	    },
//	    DocumentStoreID: "vs_123",
//	})
package llm

import (
	"context"
	"fmt"

	"github.com/entrhq/formfill/pkg/types"
)

// Request is one model call.
type Request struct {
	Messages []*types.Message

	// DocumentStoreID names the vector store searched by the model. Empty
	// disables retrieval.
	DocumentStoreID string

	// Temperature is sent only when set. Reasoning models reject it.
	Temperature *float64
}

// Response is the text produced by a model call.
type Response struct {
	ID    string
	Model string
	Text  string
	Usage types.TokenUsage
}

// Provider defines the interface for model integrations.
//
// Providers handle transport only. They report non-2xx replies as *APIError
// so callers can classify failures without parsing messages.
type Provider interface {
	// Respond sends the request and returns the concatenated output text.
	Respond(ctx context.Context, req *Request) (*Response, error)

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}

// APIError is a non-2xx reply from the model service.
type APIError struct {
	StatusCode int
	// Detail is the server-supplied error text, when any.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Detail)
}
