package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventType(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeRunStart, "run_start"},
		{EventTypeStateChanged, "state_changed"},
		{EventTypeFieldProgress, "field_progress"},
		{EventTypeSummary, "summary"},
		{EventTypeNoFields, "no_fields"},
		{EventTypeConsentRequest, "consent_request"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.eventType))
		})
	}
}

func TestFieldProgressMessage(t *testing.T) {
	tests := []struct {
		name     string
		progress FieldProgress
		expected string
	}{
		{"filled", FieldProgress{UID: "ff-1", Label: "Email", Status: FieldStatusFilled}, "Filled Email"},
		{"not found falls back to uid", FieldProgress{UID: "ff-2", Status: FieldStatusNotFound}, "No answer for ff-2"},
		{"error with detail", FieldProgress{UID: "ff-3", Label: "Country", Status: FieldStatusError, Detail: "rate limited"}, "Skipped Country: rate limited"},
		{"skipped", FieldProgress{UID: "ff-4", Label: "Size", Status: FieldStatusSkipped}, "Skipped Size"},
		{"declined", FieldProgress{UID: "ff-5", Label: "PIN", Status: FieldStatusDeclined}, "Declined PIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewFieldProgressEvent("run", tt.progress)
			assert.Equal(t, EventTypeFieldProgress, ev.Type)
			assert.Equal(t, tt.expected, ev.Message)
			assert.Equal(t, tt.progress, *ev.Field)
		})
	}
}

func TestSummaryEvent(t *testing.T) {
	ev := NewSummaryEvent("run-1", Summary{Fields: 5, Filled: 3, Skipped: 2})
	assert.Equal(t, "Autofill complete: 3 filled, 2 skipped", ev.Message)
	assert.Equal(t, "run-1", ev.RunID)
	assert.True(t, ev.IsTerminal())
}

func TestTerminalAndConsentEvents(t *testing.T) {
	err := errors.New("no credentials")

	assert.True(t, NewNoFieldsEvent("r").IsTerminal())
	assert.True(t, NewRunAbandonedEvent("r", err).IsTerminal())
	assert.Equal(t, "no credentials", NewRunAbandonedEvent("r", err).Message)
	assert.False(t, NewStateChangedEvent("r", "collecting").IsTerminal())

	info := ConsentInfo{ID: "c1", UID: "ff-1"}
	assert.True(t, NewConsentRequestEvent(info).IsConsentEvent())
	assert.True(t, NewConsentTimeoutEvent(info).IsConsentEvent())
	assert.False(t, NewBatchFailedEvent("r", BatchInfo{}, err).IsConsentEvent())
}

func TestTokenUsageAdd(t *testing.T) {
	var u TokenUsage
	u.Add(TokenUsage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14})
	u.Add(TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2})
	assert.Equal(t, TokenUsage{PromptTokens: 11, CompletionTokens: 5, TotalTokens: 16}, u)
}
