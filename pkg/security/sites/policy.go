// Package sites decides which pages formfill may operate on.
package sites

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// ErrSiteBlocked is returned for pages the policy excludes.
var ErrSiteBlocked = errors.New("site blocked by policy")

type pattern struct {
	raw  string
	g    glob.Glob
	full bool // match the whole URL instead of the host
}

// Policy holds allow and block patterns. Patterns containing "/" match the
// full URL; others match the host name with "." as separator, so
// "*.example.com" covers one subdomain level and "**.example.com" any depth.
type Policy struct {
	allowed []pattern
	blocked []pattern
}

// NewPolicy compiles the given patterns.
func NewPolicy(allowed, blocked []string) (*Policy, error) {
	p := &Policy{}
	var err error
	if p.allowed, err = compile(allowed); err != nil {
		return nil, fmt.Errorf("invalid allowed pattern: %w", err)
	}
	if p.blocked, err = compile(blocked); err != nil {
		return nil, fmt.Errorf("invalid blocked pattern: %w", err)
	}
	return p, nil
}

func compile(patterns []string) ([]pattern, error) {
	out := make([]pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		full := strings.Contains(raw, "/")
		var (
			g   glob.Glob
			err error
		)
		if full {
			g, err = glob.Compile(raw)
		} else {
			g, err = glob.Compile(raw, '.')
		}
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", raw, err)
		}
		out = append(out, pattern{raw: raw, g: g, full: full})
	}
	return out, nil
}

// Check returns ErrSiteBlocked when pageURL matches a blocked pattern, or
// when an allow list is set and pageURL matches none of it. A nil policy
// allows everything.
func (p *Policy) Check(pageURL string) error {
	if p == nil {
		return nil
	}
	full := strings.ToLower(strings.TrimSpace(pageURL))
	host := full
	if u, err := url.Parse(full); err == nil && u.Host != "" {
		host = u.Hostname()
	}

	for _, pat := range p.blocked {
		if pat.match(full, host) {
			return fmt.Errorf("%w: %s matches %q", ErrSiteBlocked, host, pat.raw)
		}
	}
	if len(p.allowed) == 0 {
		return nil
	}
	for _, pat := range p.allowed {
		if pat.match(full, host) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not in the allow list", ErrSiteBlocked, host)
}

// Allowed is Check as a predicate.
func (p *Policy) Allowed(pageURL string) bool {
	return p.Check(pageURL) == nil
}

func (pat pattern) match(full, host string) bool {
	if pat.full {
		return pat.g.Match(full)
	}
	return pat.g.Match(host)
}
