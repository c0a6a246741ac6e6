package dom

import (
	"strconv"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// inlineStyle parses the style attribute into lowercase property/value
// pairs; later declarations override earlier ones.
func inlineStyle(n *html.Node) map[string]string {
	style, ok := getAttr(n, "style")
	if !ok || strings.TrimSpace(style) == "" {
		return nil
	}
	decls, err := parser.ParseDeclarations(style)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(decls))
	for _, d := range decls {
		out[strings.ToLower(strings.TrimSpace(d.Property))] = strings.ToLower(strings.TrimSpace(d.Value))
	}
	return out
}

// visible approximates layout visibility from markup alone: the hidden
// attribute and display:none on the element or any ancestor, the nearest
// visibility declaration, and an explicit zero-size box on the element.
// Stylesheet rules are not evaluated.
func visible(n *html.Node) bool {
	if style := inlineStyle(n); style != nil && isZeroLength(style["width"]) && isZeroLength(style["height"]) {
		return false
	}

	visibilityDecided := false
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if hasAttr(p, "hidden") {
			return false
		}
		style := inlineStyle(p)
		if style == nil {
			continue
		}
		if style["display"] == "none" {
			return false
		}
		if v, ok := style["visibility"]; ok && !visibilityDecided {
			visibilityDecided = true
			if v == "hidden" || v == "collapse" {
				return false
			}
		}
	}
	return true
}

func isZeroLength(v string) bool {
	if v == "" {
		return false
	}
	num := strings.TrimRightFunc(v, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || r == '%'
	})
	f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	return err == nil && f == 0
}

// disabled reports the disabled attribute on the control or on an enclosing
// fieldset.
func disabled(n *html.Node) bool {
	if hasAttr(n, "disabled") {
		return true
	}
	return closestDisabledFieldset(n) != nil
}

func closestDisabledFieldset(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if tagName(p) == "fieldset" && hasAttr(p, "disabled") {
			return p
		}
	}
	return nil
}
