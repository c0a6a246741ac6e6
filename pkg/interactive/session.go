package interactive

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/types"
)

// Session is the hover state of one page. A field becomes active once the
// pointer has rested on it for the debounce delay; leaving clears it.
type Session struct {
	page     fields.Page
	filler   *Filler
	debounce time.Duration
	onActive func(uid string)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	pending    string
	active     string
	closed     bool
}

// NewSession binds a filler to page. onActive, if set, is called from the
// timer goroutine when a field becomes active.
func NewSession(page fields.Page, filler *Filler, debounce time.Duration, onActive func(uid string)) *Session {
	return &Session{
		page:     page,
		filler:   filler,
		debounce: debounce,
		onActive: onActive,
	}
}

// Hover restarts the debounce for uid.
func (s *Session) Hover(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopLocked()
	s.pending = uid
	gen := s.generation
	s.timer = time.AfterFunc(s.debounce, func() { s.activate(gen, uid) })
}

func (s *Session) activate(gen uint64, uid string) {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	s.active = uid
	s.pending = ""
	s.timer = nil
	cb := s.onActive
	s.mu.Unlock()

	if cb != nil {
		cb(uid)
	}
}

// Leave cancels a pending hover and clears the active field.
func (s *Session) Leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.pending = ""
	s.active = ""
}

// Active returns the uid offered for filling, or "".
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// FillActive runs the single-field flow on the active field.
func (s *Session) FillActive(ctx context.Context) Outcome {
	uid := s.Active()
	if uid == "" {
		return Outcome{Status: types.FieldStatusError, Err: ErrNoActiveField}
	}
	return s.filler.FillField(ctx, s.page, uid)
}

// Close stops the debounce timer. The session ignores hovers afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
	s.active = ""
}

// stopLocked invalidates any armed timer, including one already firing.
func (s *Session) stopLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
