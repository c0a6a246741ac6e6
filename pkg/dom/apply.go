package dom

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/entrhq/formfill/pkg/fields"
)

// FillField writes value into the control bound to uid. A successful call
// performs one mutation and dispatches input then change; a failed call
// leaves the document untouched.
func (d *Document) FillField(ctx context.Context, uid, value string, allowSensitive bool) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.lookup(uid)
	if !ok {
		return fmt.Errorf("%w: %s", fields.ErrFieldNotFound, uid)
	}

	raw, targets := newScan(d.root).rawField(n)
	w, err := fields.PlanFill(raw, value, allowSensitive)
	if err != nil {
		return err
	}

	switch w.Kind {
	case fields.WriteText:
		setValue(n, w.Text)
	case fields.WriteSelect:
		for i, opt := range targets {
			if i == w.Index {
				setAttr(opt, "selected", "")
			} else {
				removeAttr(opt, "selected")
			}
		}
	case fields.WriteCheckbox:
		setChecked(n, w.Checked)
	case fields.WriteRadio:
		for i, r := range targets {
			setChecked(r, i == w.Index)
		}
	}

	d.dispatch(uid, "input")
	d.dispatch(uid, "change")
	return nil
}

func setValue(n *html.Node, value string) {
	if tagName(n) == "textarea" {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return
	}
	setAttr(n, "value", value)
}

func setChecked(n *html.Node, checked bool) {
	if checked {
		setAttr(n, "checked", "")
	} else {
		removeAttr(n, "checked")
	}
}
