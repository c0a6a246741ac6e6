package types

import "strconv"

// EventType defines the type of event emitted during an autofill run or a
// single-field fill.
type EventType string

const (
	EventTypeRunStart        EventType = "run_start"        // EventTypeRunStart indicates an autofill run has started.
	EventTypeStateChanged    EventType = "state_changed"    // EventTypeStateChanged indicates the run moved to a new state.
	EventTypeBatchStart      EventType = "batch_start"      // EventTypeBatchStart indicates a batch attempt is being sent.
	EventTypeBatchRetry      EventType = "batch_retry"      // EventTypeBatchRetry indicates a batch attempt failed and will be retried.
	EventTypeBatchComplete   EventType = "batch_complete"   // EventTypeBatchComplete indicates a batch returned an answer map.
	EventTypeBatchFailed     EventType = "batch_failed"     // EventTypeBatchFailed indicates a batch gave up; its fields will be reported as errors.
	EventTypeFieldProgress   EventType = "field_progress"   // EventTypeFieldProgress reports the outcome for one field, in page order.
	EventTypeTokenUsage      EventType = "token_usage"      // EventTypeTokenUsage reports token usage for one retrieval call.
	EventTypeNoFields        EventType = "no_fields"        // EventTypeNoFields indicates the page has nothing to fill.
	EventTypeSummary         EventType = "summary"          // EventTypeSummary is the terminal report of a completed run.
	EventTypeRunAbandoned    EventType = "run_abandoned"    // EventTypeRunAbandoned is the terminal report of a run stopped by a precondition.
	EventTypeConsentRequest  EventType = "consent_request"  // EventTypeConsentRequest asks the user to confirm a sensitive fill.
	EventTypeConsentGranted  EventType = "consent_granted"  // EventTypeConsentGranted indicates the user confirmed a sensitive fill.
	EventTypeConsentDeclined EventType = "consent_declined" // EventTypeConsentDeclined indicates the user declined a sensitive fill.
	EventTypeConsentTimeout  EventType = "consent_timeout"  // EventTypeConsentTimeout indicates a consent request expired unanswered.
)

// FieldStatus is the per-field outcome reported in page order.
type FieldStatus string

const (
	FieldStatusFilled   FieldStatus = "filled"
	FieldStatusNotFound FieldStatus = "not_found"
	FieldStatusSkipped  FieldStatus = "skipped"
	FieldStatusError    FieldStatus = "error"
	FieldStatusDeclined FieldStatus = "declined"
)

// Event represents a discrete status or progress notification.
type Event struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Error contains error information for failure events.
	Error error

	// Field is set on field progress events.
	Field *FieldProgress

	// Batch is set on batch lifecycle events.
	Batch *BatchInfo

	// Summary is set on summary events.
	Summary *Summary

	// Consent is set on consent events.
	Consent *ConsentInfo

	// TokenUsage is set on token usage events.
	TokenUsage *TokenUsage

	// Message is a human-readable status line.
	Message string

	// RunID identifies the run that emitted the event.
	RunID string

	// State is the new state on state change events.
	State string

	// Type indicates the kind of event.
	Type EventType
}

// FieldProgress describes the outcome for one field.
type FieldProgress struct {
	UID    string
	Label  string
	Status FieldStatus
	// Detail is the human-readable reason for a skip or error.
	Detail string
	// ValueLength is the length of the written value; values themselves are
	// never reported.
	ValueLength int
}

// BatchInfo describes one retrieval batch.
type BatchInfo struct {
	Index   int
	Size    int
	Attempt int
	// EstimatedTokens is the estimated prompt size for the batch request.
	EstimatedTokens int
}

// Summary contains the counts reported at the end of a run.
type Summary struct {
	Fields          int
	Unique          int
	Batches         int
	Calls           int
	Filled          int
	Skipped         int
	NotFound        int
	Errors          int
	EstimatedTokens int
	Usage           TokenUsage
	Duration        string
}

// ConsentInfo identifies a consent request and the field it concerns.
type ConsentInfo struct {
	ID     string
	UID    string
	Label  string
	Reason string
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the input/prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the generated completion/response.
	CompletionTokens int

	// TotalTokens is the total number of tokens used (prompt + completion).
	TotalTokens int
}

// Add accumulates another usage record.
func (u *TokenUsage) Add(o TokenUsage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// NewRunStartEvent creates a run start event.
func NewRunStartEvent(runID, url string) *Event {
	return &Event{
		Type:     EventTypeRunStart,
		RunID:    runID,
		Message:  "Starting autofill",
		Metadata: map[string]interface{}{"url": url},
	}
}

// NewStateChangedEvent creates a state change event.
func NewStateChangedEvent(runID, state string) *Event {
	return &Event{
		Type:     EventTypeStateChanged,
		RunID:    runID,
		State:    state,
		Metadata: make(map[string]interface{}),
	}
}

// NewBatchStartEvent creates a batch start event.
func NewBatchStartEvent(runID string, batch BatchInfo) *Event {
	return &Event{
		Type:     EventTypeBatchStart,
		RunID:    runID,
		Batch:    &batch,
		Metadata: make(map[string]interface{}),
	}
}

// NewBatchRetryEvent creates a batch retry event.
func NewBatchRetryEvent(runID string, batch BatchInfo, err error) *Event {
	return &Event{
		Type:     EventTypeBatchRetry,
		RunID:    runID,
		Batch:    &batch,
		Error:    err,
		Message:  err.Error(),
		Metadata: make(map[string]interface{}),
	}
}

// NewBatchCompleteEvent creates a batch completion event.
func NewBatchCompleteEvent(runID string, batch BatchInfo) *Event {
	return &Event{
		Type:     EventTypeBatchComplete,
		RunID:    runID,
		Batch:    &batch,
		Metadata: make(map[string]interface{}),
	}
}

// NewBatchFailedEvent creates a batch failure event.
func NewBatchFailedEvent(runID string, batch BatchInfo, err error) *Event {
	return &Event{
		Type:     EventTypeBatchFailed,
		RunID:    runID,
		Batch:    &batch,
		Error:    err,
		Message:  err.Error(),
		Metadata: make(map[string]interface{}),
	}
}

// NewFieldProgressEvent creates a per-field progress event.
func NewFieldProgressEvent(runID string, progress FieldProgress) *Event {
	return &Event{
		Type:     EventTypeFieldProgress,
		RunID:    runID,
		Field:    &progress,
		Message:  progress.message(),
		Metadata: make(map[string]interface{}),
	}
}

func (p FieldProgress) message() string {
	name := p.Label
	if name == "" {
		name = p.UID
	}
	switch p.Status {
	case FieldStatusFilled:
		return "Filled " + name
	case FieldStatusNotFound:
		return "No answer for " + name
	case FieldStatusDeclined:
		return "Declined " + name
	}
	if p.Detail != "" {
		return "Skipped " + name + ": " + p.Detail
	}
	return "Skipped " + name
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(runID string, usage TokenUsage) *Event {
	return &Event{
		Type:       EventTypeTokenUsage,
		RunID:      runID,
		TokenUsage: &usage,
		Metadata:   make(map[string]interface{}),
	}
}

// NewNoFieldsEvent creates the event reported when a page has nothing to fill.
func NewNoFieldsEvent(runID string) *Event {
	return &Event{
		Type:     EventTypeNoFields,
		RunID:    runID,
		Message:  "No fillable fields found",
		Metadata: make(map[string]interface{}),
	}
}

// NewSummaryEvent creates the terminal summary event.
func NewSummaryEvent(runID string, summary Summary) *Event {
	return &Event{
		Type:     EventTypeSummary,
		RunID:    runID,
		Summary:  &summary,
		Message:  summary.message(),
		Metadata: make(map[string]interface{}),
	}
}

func (s Summary) message() string {
	return "Autofill complete: " + strconv.Itoa(s.Filled) + " filled, " + strconv.Itoa(s.Skipped) + " skipped"
}

// NewRunAbandonedEvent creates the terminal event of a run that could not proceed.
func NewRunAbandonedEvent(runID string, err error) *Event {
	return &Event{
		Type:     EventTypeRunAbandoned,
		RunID:    runID,
		Error:    err,
		Message:  err.Error(),
		Metadata: make(map[string]interface{}),
	}
}

// NewConsentRequestEvent creates a consent request event.
func NewConsentRequestEvent(info ConsentInfo) *Event {
	return &Event{
		Type:     EventTypeConsentRequest,
		Consent:  &info,
		Message:  "Confirm filling sensitive field",
		Metadata: make(map[string]interface{}),
	}
}

// NewConsentGrantedEvent creates a consent granted event.
func NewConsentGrantedEvent(info ConsentInfo) *Event {
	return &Event{
		Type:     EventTypeConsentGranted,
		Consent:  &info,
		Metadata: make(map[string]interface{}),
	}
}

// NewConsentDeclinedEvent creates a consent declined event.
func NewConsentDeclinedEvent(info ConsentInfo) *Event {
	return &Event{
		Type:     EventTypeConsentDeclined,
		Consent:  &info,
		Metadata: make(map[string]interface{}),
	}
}

// NewConsentTimeoutEvent creates a consent timeout event.
func NewConsentTimeoutEvent(info ConsentInfo) *Event {
	return &Event{
		Type:     EventTypeConsentTimeout,
		Consent:  &info,
		Metadata: make(map[string]interface{}),
	}
}

// IsTerminal returns true for the last event of a run.
func (e *Event) IsTerminal() bool {
	return e.Type == EventTypeSummary ||
		e.Type == EventTypeNoFields ||
		e.Type == EventTypeRunAbandoned
}

// IsConsentEvent returns true if this is any consent-related event.
func (e *Event) IsConsentEvent() bool {
	return e.Type == EventTypeConsentRequest ||
		e.Type == EventTypeConsentGranted ||
		e.Type == EventTypeConsentDeclined ||
		e.Type == EventTypeConsentTimeout
}
