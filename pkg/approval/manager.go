// Package approval asks the user to confirm sensitive fills over the event
// stream and waits for the answer.
package approval

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/types"
	"github.com/google/uuid"
)

// DefaultTimeout is how long a consent request waits for an answer.
const DefaultTimeout = 2 * time.Minute

// EventEmitter is a function type for emitting events
type EventEmitter func(event *types.Event)

// Response is the user's answer to one consent request.
type Response struct {
	ID      string
	Granted bool
}

// Manager handles consent requests and responses
type Manager struct {
	timeout   time.Duration
	pending   map[string]*pendingConsent
	mu        sync.Mutex
	emitEvent EventEmitter
}

// pendingConsent tracks a request that is waiting for a response
type pendingConsent struct {
	info      types.ConsentInfo
	response  chan Response
	closeOnce sync.Once
}

// NewManager creates a consent manager. A non-positive timeout uses
// DefaultTimeout.
func NewManager(timeout time.Duration, emitEvent EventEmitter) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if emitEvent == nil {
		emitEvent = func(*types.Event) {}
	}
	return &Manager{
		timeout:   timeout,
		pending:   make(map[string]*pendingConsent),
		emitEvent: emitEvent,
	}
}

// RequestConsent emits a consent request for the field and waits for a
// response. Returns (granted, timedOut); a timeout or a canceled context is
// never a grant.
func (m *Manager) RequestConsent(ctx context.Context, uid, label, reason string) (bool, bool) {
	info := types.ConsentInfo{
		ID:     uuid.New().String(),
		UID:    uid,
		Label:  label,
		Reason: reason,
	}

	responseChannel := make(chan Response, 1)
	m.setupPending(info, responseChannel)
	defer m.cleanupPending(info.ID)

	m.emitEvent(types.NewConsentRequestEvent(info))

	return m.waitForResponse(ctx, info, responseChannel)
}

// Confirm asks for consent to fill a sensitive field.
func (m *Manager) Confirm(ctx context.Context, field fields.Descriptor) (bool, error) {
	label := field.Label
	if label == "" {
		label = field.Name
	}
	granted, _ := m.RequestConsent(ctx, field.UID, label, field.SensitiveReason)
	if !granted && ctx.Err() != nil {
		return false, ctx.Err()
	}
	return granted, nil
}

// HandleResponse delivers a response to the matching pending request.
// Responses for unknown or finished requests are ignored.
func (m *Manager) HandleResponse(response Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, ok := m.pending[response.ID]
	if !ok {
		return
	}

	// Non-blocking: the waiter may already be gone.
	select {
	case pc.response <- response:
	default:
	}
}

// Pending returns the requests still waiting for an answer.
func (m *Manager) Pending() []types.ConsentInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.ConsentInfo, 0, len(m.pending))
	for _, pc := range m.pending {
		out = append(out, pc.info)
	}
	return out
}

func (m *Manager) setupPending(info types.ConsentInfo, responseChannel chan Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending[info.ID] = &pendingConsent{
		info:     info,
		response: responseChannel,
	}
}

// cleanupPending removes the request and closes its channel exactly once.
func (m *Manager) cleanupPending(id string) {
	m.mu.Lock()
	pc, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()

	if ok {
		pc.closeOnce.Do(func() {
			close(pc.response)
		})
	}
}
