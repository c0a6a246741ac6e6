// Package dom is the in-memory page context: an HTML document parsed with
// golang.org/x/net/html that implements fields.Page.
//
// The document owns the uid registry. Each eligible control is stamped with
// fields.UIDAttribute the first time it is collected and keeps that uid for the
// lifetime of the document. All operations are serialized, standing in for the
// page's single main thread.
package dom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/entrhq/formfill/pkg/fields"
)

const uidPrefix = "ff-"

// Event is a synthetic notification dispatched on a control after a write.
type Event struct {
	UID  string
	Type string
}

// Document is a parsed page and its per-page-session state.
type Document struct {
	mu        sync.Mutex
	url       string
	root      *html.Node
	seq       int
	index     map[string]*html.Node
	events    []Event
	listeners []func(Event)
}

var _ fields.Page = (*Document)(nil)

// Parse reads an HTML document. url identifies the page for site policy.
func Parse(r io.Reader, url string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		url:   url,
		root:  root,
		index: make(map[string]*html.Node),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(s, url string) (*Document, error) {
	return Parse(strings.NewReader(s), url)
}

// URL returns the page URL the document was loaded with.
func (d *Document) URL() string {
	return d.url
}

// Root exposes the parsed tree so callers can mutate the page between
// operations, the way scripts on a live page would.
func (d *Document) Root() *html.Node {
	return d.root
}

// Render writes the current document, including filled values and uids.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document to a string.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// OnEvent registers a listener for synthetic input/change notifications.
func (d *Document) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Events returns every notification dispatched so far.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

func (d *Document) dispatch(uid, typ string) {
	ev := Event{UID: uid, Type: typ}
	d.events = append(d.events, ev)
	for _, fn := range d.listeners {
		fn(ev)
	}
}

// Element returns a read-only view of the control currently bound to uid.
func (d *Document) Element(uid string) (*Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.lookup(uid)
	if !ok {
		return nil, false
	}
	return &Element{node: n}, true
}

// ensureUID returns the uid stamped on n, stamping a fresh one if the node
// has never been tagged. A node carrying a uid that is already bound to a
// different live node (a cloned element) is re-stamped.
func (d *Document) ensureUID(n *html.Node) string {
	if uid, ok := getAttr(n, fields.UIDAttribute); ok && uid != "" {
		bound, exists := d.index[uid]
		if !exists || bound == n || !d.attached(bound) {
			d.adopt(uid, n)
			return uid
		}
	}

	uid := d.nextUID()
	setAttr(n, fields.UIDAttribute, uid)
	d.index[uid] = n
	return uid
}

func (d *Document) adopt(uid string, n *html.Node) {
	d.index[uid] = n
	if num, err := strconv.Atoi(strings.TrimPrefix(uid, uidPrefix)); err == nil && num > d.seq {
		d.seq = num
	}
}

func (d *Document) nextUID() string {
	for {
		d.seq++
		uid := uidPrefix + strconv.Itoa(d.seq)
		if _, taken := d.index[uid]; !taken {
			return uid
		}
	}
}

// lookup resolves uid to a node still attached to the document.
func (d *Document) lookup(uid string) (*html.Node, bool) {
	if uid == "" {
		return nil, false
	}
	if n, ok := d.index[uid]; ok && d.attached(n) && attrEquals(n, fields.UIDAttribute, uid) {
		return n, true
	}
	// The page may have moved the stamped node under a new parent or
	// re-parsed it; fall back to a scan for the attribute.
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if found == nil && n.Type == html.ElementNode && attrEquals(n, fields.UIDAttribute, uid) {
			found = n
		}
		return found == nil
	})
	if found == nil {
		return nil, false
	}
	d.index[uid] = found
	return found, true
}

func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
