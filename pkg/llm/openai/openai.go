// Package openai provides an OpenAI-compatible provider backed by the
// Responses API with file_search over a vector store.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	resp, err := provider.Respond(ctx, &llm.Request{
//	    Messages:        messages,
//	    DocumentStoreID: "vs_abc123",
//	})
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"

	"github.com/entrhq/formfill/pkg/llm"
	"github.com/entrhq/formfill/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	maxDetailLen = 500
)

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

var _ llm.Provider = (*Provider)(nil)

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client, e.g. to point at a test server.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY environment variable.
// If baseURL is not provided via WithBaseURL option, it will check OPENAI_BASE_URL environment variable.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	return p, nil
}

// Respond posts the request to {baseURL}/responses and returns the
// concatenated output_text parts.
func (p *Provider) Respond(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	body, err := json.Marshal(p.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &llm.APIError{StatusCode: resp.StatusCode, Detail: errorDetail(raw)}
	}

	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("failed to decode response: invalid JSON")
	}
	return parseResponse(raw), nil
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

func (p *Provider) buildRequestBody(req *llm.Request) map[string]interface{} {
	body := map[string]interface{}{
		"model": p.model,
		"input": convertToOpenAIMessages(req.Messages),
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.DocumentStoreID != "" {
		body["tools"] = []map[string]interface{}{{
			"type":             "file_search",
			"vector_store_ids": []string{req.DocumentStoreID},
		}}
	}
	return body
}

// parseResponse extracts output text and usage. Message items carry content
// parts; only output_text parts are answer text.
func parseResponse(raw []byte) *llm.Response {
	doc := gjson.ParseBytes(raw)
	out := &llm.Response{
		ID:    doc.Get("id").String(),
		Model: doc.Get("model").String(),
		Usage: types.TokenUsage{
			PromptTokens:     int(doc.Get("usage.input_tokens").Int()),
			CompletionTokens: int(doc.Get("usage.output_tokens").Int()),
			TotalTokens:      int(doc.Get("usage.total_tokens").Int()),
		},
	}

	var b strings.Builder
	doc.Get("output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, part gjson.Result) bool {
			if part.Get("type").String() == "output_text" {
				b.WriteString(part.Get("text").String())
			}
			return true
		})
		return true
	})
	out.Text = b.String()

	if out.Text == "" {
		out.Text = doc.Get("output_text").String()
	}
	return out
}

// errorDetail returns error.message from a JSON error body, or the trimmed
// body text.
func errorDetail(raw []byte) string {
	if gjson.ValidBytes(raw) {
		if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
			return strings.TrimSpace(msg.String())
		}
		if msg := gjson.GetBytes(raw, "message"); msg.Exists() && msg.Type == gjson.String {
			return strings.TrimSpace(msg.String())
		}
	}
	detail := strings.TrimSpace(string(raw))
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}
	return detail
}

// convertToOpenAIMessages converts our Message format to OpenAI message params.
// They marshal to the {role, content} shape the Responses API accepts as input.
func convertToOpenAIMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}
