// Package fields defines the detached description of a fillable form control,
// its content fingerprint, and the pure rules that decide how a value is
// written into a control. Page contexts (the in-memory HTML document and the
// live browser page) own the elements; this package only ever sees records.
package fields

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/entrhq/formfill/pkg/sensitivity"
)

// MaxOptions caps the option strings carried by a select descriptor.
const MaxOptions = 50

// UIDAttribute is the attribute a page context stamps onto each element.
const UIDAttribute = "data-formfill-uid"

// Descriptor is one eligible input control, detached from the page.
type Descriptor struct {
	UID             string   `json:"uid"`
	Tag             string   `json:"tag"`
	Type            string   `json:"type,omitempty"`
	Name            string   `json:"name,omitempty"`
	ID              string   `json:"id,omitempty"`
	Placeholder     string   `json:"placeholder,omitempty"`
	Label           string   `json:"label,omitempty"`
	AriaLabel       string   `json:"ariaLabel,omitempty"`
	Autocomplete    string   `json:"autocomplete,omitempty"`
	Required        bool     `json:"required"`
	Options         []string `json:"options,omitempty"`
	Sensitive       bool     `json:"sensitive"`
	SensitiveReason string   `json:"sensitiveReason,omitempty"`
}

// Metadata returns the classifier view of the descriptor.
func (d Descriptor) Metadata() sensitivity.Metadata {
	return sensitivity.Metadata{
		Tag:          d.Tag,
		Type:         d.Type,
		Name:         d.Name,
		ID:           d.ID,
		Placeholder:  d.Placeholder,
		Label:        d.Label,
		AriaLabel:    d.AriaLabel,
		Autocomplete: d.Autocomplete,
	}
}

// Fingerprint returns the content key of the descriptor. It ignores UID, so
// structurally identical controls share a fingerprint.
func (d Descriptor) Fingerprint() string {
	parts := []string{
		canonical(d.Label),
		canonical(d.Name),
		canonical(d.ID),
		canonical(d.Placeholder),
		canonical(d.Type),
		canonical(d.Tag),
	}
	opts := make([]string, len(d.Options))
	for i, o := range d.Options {
		opts[i] = canonical(o)
	}
	parts = append(parts, strings.Join(opts, "\x1e"))

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:12])
}

func canonical(s string) string {
	return strings.ToLower(NormalizeValue(s))
}

// NormalizeValue trims and collapses internal whitespace runs to one space.
func NormalizeValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
