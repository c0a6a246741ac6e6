package fields

import (
	"fmt"
	"strings"

	"github.com/entrhq/formfill/pkg/sensitivity"
)

// WriteKind names the single mutation a fill performs.
type WriteKind string

const (
	WriteText     WriteKind = "text"     // set the value through the native setter
	WriteSelect   WriteKind = "select"   // select Options[Index]
	WriteCheckbox WriteKind = "checkbox" // set checked state
	WriteRadio    WriteKind = "radio"    // check Group[Index]
)

// Write is the planned mutation for one FillField call.
type Write struct {
	Kind    WriteKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Index   int       `json:"index"`
	Checked bool      `json:"checked"`
}

var (
	truthy = map[string]bool{"true": true, "yes": true, "1": true, "checked": true}
	falsy  = map[string]bool{"false": true, "no": true, "0": true, "unchecked": true}
)

// PlanFill decides how value is written into the control described by raw.
// Sensitivity is re-evaluated here from the live element's current metadata,
// never taken from an earlier extraction.
func PlanFill(raw RawField, value string, allowSensitive bool) (Write, error) {
	if !allowSensitive {
		if res := sensitivity.ClassifyElement(raw); res.Sensitive {
			return Write{}, fmt.Errorf("%w: %s", ErrSensitiveRefused, res.Reason)
		}
	}

	v := NormalizeValue(value)
	if v == "" {
		return Write{}, ErrEmptyValue
	}

	tag := strings.ToLower(raw.Tag)
	inputType := strings.ToLower(strings.TrimSpace(raw.Type))

	switch {
	case tag == "select":
		idx, ok := MatchChoice(raw.Options, v)
		if !ok {
			return Write{}, fmt.Errorf("%w for %q", ErrNoMatchingOption, v)
		}
		return Write{Kind: WriteSelect, Index: idx}, nil

	case tag == "input" && inputType == "checkbox":
		checked, err := ParseCheckbox(v)
		if err != nil {
			return Write{}, err
		}
		return Write{Kind: WriteCheckbox, Checked: checked}, nil

	case tag == "input" && inputType == "radio":
		if raw.Name == "" {
			return Write{}, ErrRadioWithoutGroup
		}
		idx, ok := MatchChoice(raw.Group, v)
		if !ok {
			return Write{}, fmt.Errorf("%w for %q", ErrNoMatchingRadio, v)
		}
		return Write{Kind: WriteRadio, Index: idx}, nil

	case tag == "textarea", tag == "input" && IsFillableControl(tag, inputType):
		return Write{Kind: WriteText, Text: v}, nil
	}

	return Write{}, fmt.Errorf("%w: %s %s", ErrUnsupportedControl, tag, inputType)
}

// ParseCheckbox maps the fixed truthy/falsy vocabulary onto a checked state.
func ParseCheckbox(value string) (bool, error) {
	v := strings.ToLower(NormalizeValue(value))
	switch {
	case truthy[v]:
		return true, nil
	case falsy[v]:
		return false, nil
	}
	return false, fmt.Errorf("%w %q", ErrInvalidCheckboxValue, value)
}

// MatchChoice finds the choice for value, case-insensitively. An exact match
// on text or value wins; otherwise the first choice whose text or value
// contains value, or is contained by it.
//
// The containment fallback is loose for short values: "US" matches both
// "USA" and "Russia", and the first in document order wins.
func MatchChoice(choices []Choice, value string) (int, bool) {
	want := strings.ToLower(NormalizeValue(value))
	if want == "" {
		return -1, false
	}

	for i, c := range choices {
		if strings.ToLower(NormalizeValue(c.Text)) == want || strings.ToLower(NormalizeValue(c.Value)) == want {
			return i, true
		}
	}

	for i, c := range choices {
		if overlaps(strings.ToLower(NormalizeValue(c.Text)), want) || overlaps(strings.ToLower(NormalizeValue(c.Value)), want) {
			return i, true
		}
	}
	return -1, false
}

func overlaps(candidate, want string) bool {
	if candidate == "" {
		return false
	}
	return strings.Contains(candidate, want) || strings.Contains(want, candidate)
}
