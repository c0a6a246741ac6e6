package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/entrhq/formfill/pkg/llm"
	"github.com/entrhq/formfill/pkg/types"
)

const okResponse = `{
  "id": "resp_1",
  "model": "gpt-4o-mini",
  "output": [
    {"type": "file_search_call", "id": "fs_1", "status": "completed"},
    {"type": "message", "role": "assistant", "content": [
      {"type": "output_text", "text": "{\"ff-1\": "},
      {"type": "output_text", "text": "\"Ada\"}"}
    ]}
  ],
  "usage": {"input_tokens": 120, "output_tokens": 8, "total_tokens": 128}
}`

func TestNewProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	_, err := NewProvider("")
	assert.Error(t, err)

	p, err := NewProvider("sk-test")
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, DefaultBaseURL, p.GetBaseURL())

	p, err = NewProvider("sk-test", WithModel("gpt-4o"), WithBaseURL("http://localhost:8080/v1/"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.GetModel())
	assert.Equal(t, "http://localhost:8080/v1", p.GetBaseURL())
}

func TestNewProvider_EnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")

	p, err := NewProvider("")
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/v1", p.GetBaseURL())
}

func TestRespond(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := p.Respond(context.Background(), &llm.Request{
		Messages: []*types.Message{
			types.NewSystemMessage("Answer strictly."),
			types.NewUserMessage("fields"),
		},
		DocumentStoreID: "vs_42",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ff-1": "Ada"}`, resp.Text)
	assert.Equal(t, "resp_1", resp.ID)
	assert.Equal(t, types.TokenUsage{PromptTokens: 120, CompletionTokens: 8, TotalTokens: 128}, resp.Usage)

	req := gjson.ParseBytes(body)
	assert.Equal(t, DefaultModel, req.Get("model").String())
	assert.Equal(t, "file_search", req.Get("tools.0.type").String())
	assert.Equal(t, "vs_42", req.Get("tools.0.vector_store_ids.0").String())
	assert.Equal(t, "system", req.Get("input.0.role").String())
	assert.Equal(t, "Answer strictly.", req.Get("input.0.content").String())
	assert.Equal(t, "user", req.Get("input.1.role").String())
	assert.False(t, req.Get("temperature").Exists(), "temperature is opt-in")
}

func TestRespond_Temperature(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"output_text": "{}"}`)
	}))
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	zero := 0.0
	_, err = p.Respond(context.Background(), &llm.Request{
		Messages:    []*types.Message{types.NewUserMessage("hi")},
		Temperature: &zero,
	})
	require.NoError(t, err)

	temp := gjson.GetBytes(body, "temperature")
	require.True(t, temp.Exists())
	assert.Equal(t, float64(0), temp.Float())
}

func TestRespond_NoStoreOmitsTools(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"output_text": "{}"}`)
	}))
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := p.Respond(context.Background(), &llm.Request{Messages: []*types.Message{types.NewUserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Text)
	assert.False(t, gjson.GetBytes(body, "tools").Exists())
}

func TestRespond_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"json error", http.StatusBadRequest, `{"error": {"message": "Vector store vs_x not found", "type": "invalid_request_error"}}`, "Vector store vs_x not found"},
		{"plain text", http.StatusBadGateway, "upstream unavailable\n", "upstream unavailable"},
		{"empty body", http.StatusUnauthorized, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = p.Respond(context.Background(), &llm.Request{})
			var apiErr *llm.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
		})
	}
}

func TestRespond_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	}))
	defer srv.Close()

	p, err := NewProvider("sk-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Respond(context.Background(), &llm.Request{})
	assert.Error(t, err)
	var apiErr *llm.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "API request failed with status 429", (&llm.APIError{StatusCode: 429}).Error())
	assert.Equal(t, "API request failed with status 400: bad", (&llm.APIError{StatusCode: 400, Detail: "bad"}).Error())
}
