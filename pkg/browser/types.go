package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one browser with a single page that forms are read from and
// written to.
type Session struct {
	Name      string
	Browser   playwright.Browser
	Context   playwright.BrowserContext
	Page      playwright.Page
	Headless  bool
	CreatedAt time.Time

	mu         sync.Mutex
	lastUsedAt time.Time
}

// SessionOptions configures a new session.
type SessionOptions struct {
	Headless bool
	Viewport *Viewport
	// Timeout is the default action timeout in milliseconds.
	Timeout float64
}

// Viewport is the page size.
type Viewport struct {
	Width  int
	Height int
}

// SessionInfo describes a session for listings.
type SessionInfo struct {
	Name       string
	CurrentURL string
	Headless   bool
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// NavigateOptions configures Navigate.
type NavigateOptions struct {
	// WaitUntil is one of load, domcontentloaded, networkidle, commit.
	WaitUntil string
	// Timeout in milliseconds.
	Timeout float64
}

const (
	// DefaultTimeout is the page action timeout in milliseconds.
	DefaultTimeout        = 30000.0
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 2
)
