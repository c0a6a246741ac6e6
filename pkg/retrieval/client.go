// Package retrieval answers batches of form fields from a document store
// through a retrieval-augmented model call.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/llm"
	"github.com/entrhq/formfill/pkg/llm/openai"
	"github.com/entrhq/formfill/pkg/llm/tokenizer"
	"github.com/entrhq/formfill/pkg/logging"
	"github.com/entrhq/formfill/pkg/types"
)

// DefaultTimeout bounds each retrieval call.
const DefaultTimeout = 30 * time.Second

const systemInstruction = `You fill in web forms using only facts found in the attached documents.
You receive a JSON array of form fields, each identified by "uid".
Reply with exactly one JSON object and nothing else: no prose, no code fences.
Use every uid from the input as a key, exactly once.
Each value is a string: the best answer for that field taken from the documents, or ` + NotFound + ` when the documents do not contain it.
For fields with "options", answer with one of the options verbatim.
For checkboxes answer "yes" or "no".
Never invent values.`

// Credentials is the read-only snapshot a run resolves once.
type Credentials struct {
	APIKey          string
	DocumentStoreID string
	Model           string
	BaseURL         string
}

// Validate reports a configuration error for missing required values.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &Error{Kind: KindConfig, Err: ErrMissingAPIKey}
	}
	if strings.TrimSpace(c.DocumentStoreID) == "" {
		return &Error{Kind: KindConfig, Err: ErrMissingDocumentStore}
	}
	return nil
}

// String never includes the API key.
func (c Credentials) String() string {
	key := "unset"
	if c.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("model=%s store=%s base_url=%s api_key=%s", c.Model, c.DocumentStoreID, c.BaseURL, key)
}

// Result is the outcome of one batch call.
type Result struct {
	// Answers maps uid to a cleaned answer. Fields without an answer are absent.
	Answers map[string]string
	// EstimatedTokens is the local estimate of the prompt size.
	EstimatedTokens int
	// Usage is what the service reported, if anything.
	Usage types.TokenUsage
}

// Client issues one model call per batch.
type Client struct {
	provider        llm.Provider
	documentStoreID string
	timeout         time.Duration
	tokenizer       *tokenizer.Tokenizer
	logger          *logging.Logger
	httpClient      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProvider replaces the model provider.
func WithProvider(p llm.Provider) Option {
	return func(c *Client) {
		c.provider = p
	}
}

// WithHTTPClient sets the HTTP client of the default provider.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTokenizer sets the tokenizer used for prompt estimates. Without one
// the character-based estimate is used.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(c *Client) {
		c.tokenizer = t
	}
}

// NewClient builds a client for creds. Missing credentials are a
// configuration error.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		documentStoreID: creds.DocumentStoreID,
		timeout:         DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.provider == nil {
		p, err := openai.NewProvider(creds.APIKey,
			openai.WithModel(creds.Model),
			openai.WithBaseURL(creds.BaseURL),
			openai.WithHTTPClient(c.httpClient),
		)
		if err != nil {
			return nil, &Error{Kind: KindConfig, Err: err}
		}
		c.provider = p
	}
	return c, nil
}

// fieldPrompt is the per-field context sent to the model.
type fieldPrompt struct {
	UID         string   `json:"uid"`
	Label       string   `json:"label,omitempty"`
	Name        string   `json:"name,omitempty"`
	ID          string   `json:"id,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Type        string   `json:"type,omitempty"`
	Tag         string   `json:"tag"`
	Required    bool     `json:"required,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// BuildMessages renders the system instruction and the batch as messages.
func BuildMessages(batch []fields.Descriptor) ([]*types.Message, error) {
	prompts := make([]fieldPrompt, 0, len(batch))
	for _, d := range batch {
		label := d.Label
		if label == "" {
			label = d.AriaLabel
		}
		prompts = append(prompts, fieldPrompt{
			UID:         d.UID,
			Label:       label,
			Name:        d.Name,
			ID:          d.ID,
			Placeholder: d.Placeholder,
			Type:        d.Type,
			Tag:         d.Tag,
			Required:    d.Required,
			Options:     d.Options,
		})
	}
	payload, err := json.Marshal(prompts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}
	return []*types.Message{
		types.NewSystemMessage(systemInstruction),
		types.NewUserMessage("Fields:\n" + string(payload)),
	}, nil
}

// AnswerBatch asks for answers to every field in batch with one call.
// Failures are *Error values; IsRetryable tells transient ones apart.
func (c *Client) AnswerBatch(ctx context.Context, batch []fields.Descriptor) (*Result, error) {
	if len(batch) == 0 {
		return &Result{Answers: map[string]string{}}, nil
	}

	messages, err := BuildMessages(batch)
	if err != nil {
		return nil, &Error{Kind: KindInvalidOutput, Err: err}
	}

	estimate := 0
	for _, m := range messages {
		estimate += c.tokenizer.Count(m.Content)
	}
	c.logger.Debugf("answering batch of %d fields with %s (~%d prompt tokens)", len(batch), c.provider.GetModel(), estimate)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Respond(callCtx, &llm.Request{
		Messages:        messages,
		DocumentStoreID: c.documentStoreID,
	})
	if err != nil {
		rerr := classify(ctx, err)
		c.logger.Warnf("batch call failed (%s, retryable=%t): %v", rerr.Kind, rerr.Retryable, err)
		return nil, rerr
	}

	uids := make([]string, len(batch))
	for i, d := range batch {
		uids[i] = d.UID
	}
	answers, err := ParseAnswers(resp.Text, uids)
	if err != nil {
		c.logger.Warnf("unreadable model output (%d bytes): %v", len(resp.Text), err)
		return nil, &Error{Kind: KindInvalidOutput, Err: err}
	}

	c.logger.Debugf("batch answered %d of %d fields", len(answers), len(batch))
	return &Result{Answers: answers, EstimatedTokens: estimate, Usage: resp.Usage}, nil
}
