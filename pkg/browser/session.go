package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// LastUsedAt returns when the session last served a request.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// touch updates the last-used timestamp to now.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// Navigate loads url into the session page.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.touch()

	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// SetContent replaces the page document with markup.
func (s *Session) SetContent(markup string) error {
	s.touch()
	if err := s.Page.SetContent(markup); err != nil {
		return fmt.Errorf("failed to set content: %w", err)
	}
	return nil
}

// Content returns the serialized page document.
func (s *Session) Content() (string, error) {
	s.touch()
	html, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return html, nil
}

// Forms returns the field protocol view of the session page.
func (s *Session) Forms() *FormPage {
	return &FormPage{session: s}
}

func (s *Session) close() error {
	return errors.Join(s.Page.Close(), s.Context.Close(), s.Browser.Close())
}
