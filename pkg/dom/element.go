package dom

import (
	"golang.org/x/net/html"
)

// Element is a read-only view of a control's current state.
type Element struct {
	node *html.Node
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string { return tagName(e.node) }

// Attr returns an attribute value.
func (e *Element) Attr(key string) string { return attr(e.node, key) }

// Value returns the current value: the value attribute of an input, the
// text of a textarea, or the value of the selected option.
func (e *Element) Value() string {
	switch tagName(e.node) {
	case "textarea":
		var text string
		for c := e.node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				text += c.Data
			}
		}
		return text
	case "select":
		if opt := e.selectedOption(); opt != nil {
			if v, ok := getAttr(opt, "value"); ok {
				return v
			}
			return textContent(opt)
		}
		return ""
	}
	return attr(e.node, "value")
}

// SelectedText returns the text of the selected option of a select.
func (e *Element) SelectedText() string {
	if opt := e.selectedOption(); opt != nil {
		return textContent(opt)
	}
	return ""
}

// Checked reports the checked state of a checkbox or radio.
func (e *Element) Checked() bool { return hasAttr(e.node, "checked") }

func (e *Element) selectedOption() *html.Node {
	var first, selected *html.Node
	walk(e.node, func(c *html.Node) bool {
		if tagName(c) != "option" {
			return true
		}
		if first == nil {
			first = c
		}
		if hasAttr(c, "selected") {
			selected = c
			return false
		}
		return true
	})
	if selected != nil {
		return selected
	}
	return first
}
