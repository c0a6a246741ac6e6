package fields

import (
	"strings"

	"github.com/entrhq/formfill/pkg/sensitivity"
)

// Choice is one selectable alternative: a select option or a radio button in
// a name group.
type Choice struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// RawField is what a page context reports about one live element before
// classification. Page contexts build it; Describe and PlanFill consume it.
type RawField struct {
	Tag          string   `json:"tag"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	ID           string   `json:"id"`
	Placeholder  string   `json:"placeholder"`
	Label        string   `json:"label"`
	AriaLabel    string   `json:"ariaLabel"`
	Autocomplete string   `json:"autocomplete"`
	Required     bool     `json:"required"`
	Options      []Choice `json:"options"`
	// Group holds the radios sharing this radio's name, in document order.
	Group []Choice `json:"group"`
}

// SensitivityMetadata lets a raw field be classified through the element
// call shape.
func (r RawField) SensitivityMetadata() sensitivity.Metadata {
	return sensitivity.Metadata{
		Tag:          r.Tag,
		Type:         r.Type,
		Name:         r.Name,
		ID:           r.ID,
		Placeholder:  r.Placeholder,
		Label:        r.Label,
		AriaLabel:    r.AriaLabel,
		Autocomplete: r.Autocomplete,
	}
}

// Describe builds the detached descriptor for a raw field and classifies it.
func Describe(uid string, raw RawField) Descriptor {
	d := Descriptor{
		UID:          uid,
		Tag:          strings.ToLower(raw.Tag),
		Type:         strings.ToLower(raw.Type),
		Name:         raw.Name,
		ID:           raw.ID,
		Placeholder:  NormalizeValue(raw.Placeholder),
		Label:        NormalizeValue(raw.Label),
		AriaLabel:    NormalizeValue(raw.AriaLabel),
		Autocomplete: raw.Autocomplete,
		Required:     raw.Required,
	}
	if d.Tag == "select" {
		for _, opt := range raw.Options {
			text := NormalizeValue(opt.Text)
			if text == "" {
				text = NormalizeValue(opt.Value)
			}
			if text == "" {
				continue
			}
			d.Options = append(d.Options, text)
			if len(d.Options) == MaxOptions {
				break
			}
		}
	}

	res := sensitivity.ClassifyElement(raw)
	d.Sensitive = res.Sensitive
	d.SensitiveReason = res.Reason
	return d
}

// nonFillableTypes are input types the extractor never reports.
var nonFillableTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"reset":  true,
	"file":   true,
	"image":  true,
	"range":  true,
	"color":  true,
}

// IsFillableControl reports whether tag/type names a control this module
// writes into.
func IsFillableControl(tag, inputType string) bool {
	switch strings.ToLower(tag) {
	case "textarea", "select":
		return true
	case "input":
		return !nonFillableTypes[strings.ToLower(strings.TrimSpace(inputType))]
	}
	return false
}
