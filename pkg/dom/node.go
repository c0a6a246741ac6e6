package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/formfill/pkg/fields"
)

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := getAttr(n, key)
	return v
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := getAttr(n, key)
	return ok
}

func attrEquals(n *html.Node, key, want string) bool {
	v, ok := getAttr(n, key)
	return ok && v == want
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func tagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

func isControl(n *html.Node) bool {
	switch tagName(n) {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// walk visits n and its descendants in document order until fn returns false.
// Template contents are inert and never visited.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	if tagName(n) == "template" {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// textContent concatenates descendant text, skipping the subtrees of the
// given tags. Script and style bodies never count as text.
func textContent(n *html.Node, skip ...string) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			tag := tagName(c)
			if tag == "script" || tag == "style" || tag == "template" {
				return
			}
			for _, s := range skip {
				if tag == s {
					return
				}
			}
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			visit(gc)
		}
	}
	visit(n)
	return fields.NormalizeValue(b.String())
}

func closest(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if tagName(p) == tag {
			return p
		}
	}
	return nil
}

func inputType(n *html.Node) string {
	if tagName(n) != "input" {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(attr(n, "type")))
	if t == "" {
		return "text"
	}
	return t
}
