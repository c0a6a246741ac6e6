package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/entrhq/formfill/pkg/approval"
	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/interactive"
	"github.com/entrhq/formfill/pkg/types"
)

// fillOne runs the single-field flow the way a pointer would trigger it: the
// field is hovered, becomes active after the debounce, and is then filled.
func fillOne(ctx context.Context, page fields.Page, filler *interactive.Filler, uid string, debounce time.Duration) (interactive.Outcome, error) {
	// Stamping is deterministic, so uids printed by -list resolve here.
	if _, err := page.ListFields(ctx, true); err != nil {
		return interactive.Outcome{}, fmt.Errorf("failed to collect fields: %w", err)
	}

	activated := make(chan struct{}, 1)
	session := interactive.NewSession(page, filler, debounce, func(string) {
		select {
		case activated <- struct{}{}:
		default:
		}
	})
	defer session.Close()

	session.Hover(uid)
	select {
	case <-ctx.Done():
		return interactive.Outcome{}, ctx.Err()
	case <-activated:
	}
	return session.FillActive(ctx), nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// consentResponder answers consent requests with lines read from its input:
// "y" or "yes" grants, anything else declines. At end of input every request
// is declined.
type consentResponder struct {
	manager  *approval.Manager
	requests chan string
}

// newConsent wires an approval manager whose requests are printed by out and
// answered from in. Stop the responder by canceling ctx.
func newConsent(ctx context.Context, in io.Reader, out *printer) *approval.Manager {
	r := &consentResponder{requests: make(chan string, 8)}
	r.manager = approval.NewManager(approval.DefaultTimeout, func(e *types.Event) {
		out.handle(e)
		if e.Type == types.EventTypeConsentRequest && e.Consent != nil {
			select {
			case r.requests <- e.Consent.ID:
			default:
			}
		}
	})
	go r.serve(ctx, in)
	return r.manager
}

func (r *consentResponder) serve(ctx context.Context, in io.Reader) {
	lines := bufio.NewScanner(in)
	open := true
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.requests:
			granted := false
			if open && lines.Scan() {
				granted = isYes(lines.Text())
			} else {
				open = false
			}
			r.manager.HandleResponse(approval.Response{ID: id, Granted: granted})
		}
	}
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
