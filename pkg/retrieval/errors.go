package retrieval

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/entrhq/formfill/pkg/llm"
)

// Kind classifies a retrieval failure.
type Kind string

const (
	KindConfig        Kind = "config"         // missing credentials or document store
	KindAuth          Kind = "auth"           // 401/403
	KindRateLimited   Kind = "rate_limited"   // 429
	KindServer        Kind = "server"         // 5xx
	KindRequest       Kind = "request"        // other 4xx
	KindTimeout       Kind = "timeout"        // client-side deadline
	KindTransport     Kind = "transport"      // connection-level failure
	KindCanceled      Kind = "canceled"       // caller canceled the operation
	KindInvalidOutput Kind = "invalid_output" // model reply is not a JSON object
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingDocumentStore is returned when no document store is configured.
	ErrMissingDocumentStore = errors.New("missing document store")

	// ErrInvalidOutput marks a reply that could not be read as an answer map.
	ErrInvalidOutput = errors.New("invalid model output")
)

// Error is a classified retrieval failure.
type Error struct {
	Kind      Kind
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuth:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	case KindRateLimited:
		return fmt.Sprintf("rate limited: %v", e.Err)
	case KindServer:
		return fmt.Sprintf("service error: %v", e.Err)
	case KindTimeout:
		return fmt.Sprintf("request timed out: %v", e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient retrieval failure.
func IsRetryable(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Retryable
}

// KindOf returns the classification of err, or "" if it is not a retrieval error.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}

// classify maps a provider error to a retrieval error. parent is the caller's
// context; a deadline on the per-call context alone is a timeout.
func classify(parent context.Context, err error) *Error {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr)
	}

	if parent.Err() != nil {
		return &Error{Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Retryable: true, Err: err}
	}
	return &Error{Kind: KindTransport, Retryable: true, Err: err}
}

func classifyStatus(apiErr *llm.APIError) *Error {
	switch code := apiErr.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{Kind: KindAuth, Err: apiErr}
	case code == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Retryable: true, Err: apiErr}
	case code >= 500:
		return &Error{Kind: KindServer, Retryable: true, Err: apiErr}
	}
	return &Error{Kind: KindRequest, Err: apiErr}
}
