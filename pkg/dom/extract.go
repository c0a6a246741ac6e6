package dom

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/formfill/pkg/fields"
)

// ListFields collects eligible controls in document order, stamping uids.
func (d *Document) ListFields(ctx context.Context, includeSensitive bool) ([]fields.Descriptor, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.collect(includeSensitive, true), nil
}

// HasFillableForms looks for a non-sensitive eligible control without
// stamping anything.
func (d *Document) HasFillableForms(ctx context.Context) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.collect(false, false)) > 0, nil
}

// DescribeField re-extracts the control bound to uid from the current tree.
func (d *Document) DescribeField(ctx context.Context, uid string) (fields.Descriptor, error) {
	if err := checkContext(ctx); err != nil {
		return fields.Descriptor{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.lookup(uid)
	if !ok {
		return fields.Descriptor{}, fmt.Errorf("%w: %s", fields.ErrFieldNotFound, uid)
	}
	raw, _ := newScan(d.root).rawField(n)
	return fields.Describe(uid, raw), nil
}

func (d *Document) collect(includeSensitive, stamp bool) []fields.Descriptor {
	s := newScan(d.root)
	var out []fields.Descriptor
	walk(d.root, func(n *html.Node) bool {
		if !eligible(n) {
			return true
		}
		uid := attr(n, fields.UIDAttribute)
		if stamp {
			uid = d.ensureUID(n)
		}
		raw, _ := s.rawField(n)
		desc := fields.Describe(uid, raw)
		if desc.Sensitive && !includeSensitive {
			return true
		}
		out = append(out, desc)
		return true
	})
	return out
}

func eligible(n *html.Node) bool {
	if n.Type != html.ElementNode || !isControl(n) {
		return false
	}
	if !fields.IsFillableControl(tagName(n), inputType(n)) {
		return false
	}
	if disabled(n) || hasAttr(n, "readonly") {
		return false
	}
	return visible(n)
}

// rawField reports a control's metadata. targets holds the option nodes of a
// select or the radio nodes of a group, aligned with Options or Group.
func (s *scan) rawField(n *html.Node) (raw fields.RawField, targets []*html.Node) {
	raw = fields.RawField{
		Tag:          tagName(n),
		Type:         inputType(n),
		Name:         attr(n, "name"),
		ID:           attr(n, "id"),
		Placeholder:  attr(n, "placeholder"),
		AriaLabel:    strings.TrimSpace(attr(n, "aria-label")),
		Autocomplete: attr(n, "autocomplete"),
		Required:     hasAttr(n, "required") || strings.EqualFold(attr(n, "aria-required"), "true"),
		Label:        s.label(n),
	}

	switch {
	case raw.Tag == "select":
		walk(n, func(c *html.Node) bool {
			if tagName(c) != "option" || !visible(c) {
				return true
			}
			text := textContent(c)
			value, ok := getAttr(c, "value")
			if !ok {
				value = text
			}
			raw.Options = append(raw.Options, fields.Choice{Text: text, Value: value})
			targets = append(targets, c)
			return true
		})

	case raw.Type == "radio" && raw.Name != "":
		for _, r := range s.radios[radioKey{form: closest(n, "form"), name: raw.Name}] {
			if disabled(r) {
				continue
			}
			value, ok := getAttr(r, "value")
			if !ok {
				value = "on"
			}
			raw.Group = append(raw.Group, fields.Choice{Text: s.label(r), Value: value})
			targets = append(targets, r)
		}
	}
	return raw, targets
}
