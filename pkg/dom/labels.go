package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// scan indexes one pass over the document: ids, <label for> targets and
// radio groups.
type scan struct {
	ids       map[string]*html.Node
	labelsFor map[string]*html.Node
	radios    map[radioKey][]*html.Node
}

type radioKey struct {
	form *html.Node
	name string
}

func newScan(root *html.Node) *scan {
	s := &scan{
		ids:       make(map[string]*html.Node),
		labelsFor: make(map[string]*html.Node),
		radios:    make(map[radioKey][]*html.Node),
	}
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if id := attr(n, "id"); id != "" {
			if _, seen := s.ids[id]; !seen {
				s.ids[id] = n
			}
		}
		switch tagName(n) {
		case "label":
			if target := attr(n, "for"); target != "" {
				if _, seen := s.labelsFor[target]; !seen {
					s.labelsFor[target] = n
				}
			}
		case "input":
			if inputType(n) == "radio" {
				if name := attr(n, "name"); name != "" {
					key := radioKey{form: closest(n, "form"), name: name}
					s.radios[key] = append(s.radios[key], n)
				}
			}
		}
		return true
	})
	return s
}

// label resolves a human label for a control. Priority: aria-label,
// aria-labelledby, <label for>, ancestor <label>, sibling text.
func (s *scan) label(n *html.Node) string {
	if v := strings.TrimSpace(attr(n, "aria-label")); v != "" {
		return v
	}

	if ref := attr(n, "aria-labelledby"); ref != "" {
		var parts []string
		for _, id := range strings.Fields(ref) {
			if target, ok := s.ids[id]; ok {
				if text := textContent(target); text != "" {
					parts = append(parts, text)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}

	if id := attr(n, "id"); id != "" {
		if l, ok := s.labelsFor[id]; ok {
			if text := textContent(l, "select", "textarea"); text != "" {
				return text
			}
		}
	}

	if l := closest(n, "label"); l != nil {
		if text := textContent(l, "select", "textarea"); text != "" {
			return text
		}
	}

	return siblingText(n)
}

// siblingText returns the nearest non-empty text before the control, or
// after it when nothing precedes. Another control stops the search.
func siblingText(n *html.Node) string {
	for c := n.PrevSibling; c != nil; c = c.PrevSibling {
		if text, stop := nodeText(c); stop {
			break
		} else if text != "" {
			return text
		}
	}
	for c := n.NextSibling; c != nil; c = c.NextSibling {
		if text, stop := nodeText(c); stop {
			break
		} else if text != "" {
			return text
		}
	}
	return ""
}

func nodeText(c *html.Node) (string, bool) {
	switch c.Type {
	case html.TextNode:
		return strings.TrimSpace(strings.Join(strings.Fields(c.Data), " ")), false
	case html.ElementNode:
		if isControl(c) || containsControl(c) {
			return "", true
		}
		switch tagName(c) {
		case "script", "style", "template", "br":
			return "", false
		}
		return textContent(c), false
	}
	return "", false
}

func containsControl(n *html.Node) bool {
	found := false
	walk(n, func(c *html.Node) bool {
		if c != n && isControl(c) {
			found = true
		}
		return !found
	})
	return found
}
