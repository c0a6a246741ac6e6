package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/types"
)

// mockEventEmitter captures emitted events and forwards consent requests.
type mockEventEmitter struct {
	mu       sync.Mutex
	events   []*types.Event
	requests chan types.ConsentInfo
}

func newMockEventEmitter() *mockEventEmitter {
	return &mockEventEmitter{requests: make(chan types.ConsentInfo, 4)}
}

func (m *mockEventEmitter) emit(event *types.Event) {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if event.Type == types.EventTypeConsentRequest {
		m.requests <- *event.Consent
	}
}

func (m *mockEventEmitter) eventTypes() []types.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.EventType
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func respondWith(t *testing.T, m *Manager, emitter *mockEventEmitter, granted bool) {
	t.Helper()
	go func() {
		info := <-emitter.requests
		m.HandleResponse(Response{ID: info.ID, Granted: granted})
	}()
}

func TestNewManager(t *testing.T) {
	m := NewManager(0, nil)
	assert.Equal(t, DefaultTimeout, m.timeout)
	assert.Empty(t, m.Pending())
}

func TestRequestConsent_Granted(t *testing.T) {
	emitter := newMockEventEmitter()
	m := NewManager(5*time.Second, emitter.emit)
	respondWith(t, m, emitter, true)

	granted, timedOut := m.RequestConsent(context.Background(), "ff-3", "Password", "type:password")
	assert.True(t, granted)
	assert.False(t, timedOut)
	assert.Equal(t, []types.EventType{types.EventTypeConsentRequest, types.EventTypeConsentGranted}, emitter.eventTypes())
	assert.Empty(t, m.Pending())
}

func TestRequestConsent_Declined(t *testing.T) {
	emitter := newMockEventEmitter()
	m := NewManager(5*time.Second, emitter.emit)
	respondWith(t, m, emitter, false)

	granted, timedOut := m.RequestConsent(context.Background(), "ff-3", "Password", "type:password")
	assert.False(t, granted)
	assert.False(t, timedOut)
	assert.Equal(t, []types.EventType{types.EventTypeConsentRequest, types.EventTypeConsentDeclined}, emitter.eventTypes())
}

func TestRequestConsent_Timeout(t *testing.T) {
	emitter := newMockEventEmitter()
	m := NewManager(30*time.Millisecond, emitter.emit)

	granted, timedOut := m.RequestConsent(context.Background(), "ff-3", "PIN", "text")
	assert.False(t, granted)
	assert.True(t, timedOut)
	assert.Equal(t, []types.EventType{types.EventTypeConsentRequest, types.EventTypeConsentTimeout}, emitter.eventTypes())
	assert.Empty(t, m.Pending())
}

func TestRequestConsent_ContextCanceled(t *testing.T) {
	emitter := newMockEventEmitter()
	m := NewManager(5*time.Second, emitter.emit)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-emitter.requests
		cancel()
	}()

	granted, timedOut := m.RequestConsent(ctx, "ff-3", "PIN", "text")
	assert.False(t, granted)
	assert.False(t, timedOut)
}

func TestHandleResponse_UnknownIgnored(t *testing.T) {
	m := NewManager(time.Second, nil)
	assert.NotPanics(t, func() {
		m.HandleResponse(Response{ID: "nope", Granted: true})
	})
}

func TestPending(t *testing.T) {
	emitter := newMockEventEmitter()
	m := NewManager(5*time.Second, emitter.emit)

	done := make(chan bool)
	go func() {
		granted, _ := m.RequestConsent(context.Background(), "ff-9", "Card number", "autocomplete:cc-number")
		done <- granted
	}()

	info := <-emitter.requests
	pending := m.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, info, pending[0])
	assert.Equal(t, "ff-9", pending[0].UID)
	assert.NotEmpty(t, pending[0].ID)

	m.HandleResponse(Response{ID: info.ID, Granted: true})
	assert.True(t, <-done)
	assert.Empty(t, m.Pending())
}

func TestConfirm(t *testing.T) {
	emitter := newMockEventEmitter()
	m := NewManager(5*time.Second, emitter.emit)
	respondWith(t, m, emitter, true)

	ok, err := m.Confirm(context.Background(), fields.Descriptor{UID: "ff-1", Name: "pin", SensitiveReason: "text"})
	require.NoError(t, err)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = m.Confirm(ctx, fields.Descriptor{UID: "ff-1"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
