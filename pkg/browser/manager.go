// Package browser is the live page context: a Chromium page driven through
// Playwright, exposing the field protocol over page scripts.
package browser

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/formfill/pkg/logging"
)

var (
	// ErrSessionNotFound is returned for an unknown session name.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotInitialized is returned when a session is requested before
	// Initialize.
	ErrNotInitialized = errors.New("browser driver not started")
)

// SessionManager owns the Playwright driver and the pages opened through it.
type SessionManager struct {
	maxSessions int
	logger      *logging.Logger

	mu       sync.RWMutex
	driver   *playwright.Playwright
	sessions map[string]*Session
}

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithMaxSessions caps the number of open sessions.
func WithMaxSessions(n int) ManagerOption {
	return func(m *SessionManager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *SessionManager) {
		m.logger = l
	}
}

// NewSessionManager creates a manager. Call Initialize before StartSession.
func NewSessionManager(opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		maxSessions: DefaultMaxSessions,
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize installs Chromium if it is missing and starts the driver.
// Calling it again is a no-op.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver != nil {
		return nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install chromium: %w", err)
	}
	driver, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.driver = driver
	m.logger.Debugf("playwright driver started")
	return nil
}

// StartSession opens a fresh browser with a single page under name.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.driver == nil:
		return nil, ErrNotInitialized
	case m.sessions[name] != nil:
		return nil, fmt.Errorf("session %q already exists", name)
	case len(m.sessions) >= m.maxSessions:
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}

	session, err := m.launch(name, withDefaults(opts))
	if err != nil {
		return nil, err
	}
	m.sessions[name] = session
	m.logger.Infof("session %q started (headless=%t)", name, opts.Headless)
	return session, nil
}

// launch builds browser, context and page, unwinding on failure.
func (m *SessionManager) launch(name string, opts SessionOptions) (*Session, error) {
	browser, err := m.driver.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create browser context: %w", err), browser.Close())
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open page: %w", err), bctx.Close(), browser.Close())
	}
	page.SetDefaultTimeout(opts.Timeout)

	now := time.Now()
	return &Session{
		Name:       name,
		Browser:    browser,
		Context:    bctx,
		Page:       page,
		Headless:   opts.Headless,
		CreatedAt:  now,
		lastUsedAt: now,
	}, nil
}

func withDefaults(opts SessionOptions) SessionOptions {
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return opts
}

// GetSession returns the open session called name.
func (m *SessionManager) GetSession(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s := m.sessions[name]; s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, name)
}

// CloseSession closes the session called name and forgets it.
func (m *SessionManager) CloseSession(name string) error {
	m.mu.Lock()
	s := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()

	if s == nil {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, name)
	}
	return s.close()
}

// ListSessions describes open sessions ordered by name.
func (m *SessionManager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, SessionInfo{
			Name:       s.Name,
			CurrentURL: s.Page.URL(),
			Headless:   s.Headless,
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Shutdown closes every session and stops the driver. Close errors are
// joined; the driver is stopped regardless.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, s := range m.sessions {
		if err := s.close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close session %q: %w", name, err))
		}
		delete(m.sessions, name)
	}

	if m.driver != nil {
		if err := m.driver.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.driver = nil
	}
	return errors.Join(errs...)
}
