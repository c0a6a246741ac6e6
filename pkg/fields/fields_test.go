package fields

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_IgnoresUIDAndCase(t *testing.T) {
	a := Descriptor{UID: "ff-1", Tag: "input", Type: "email", Name: "email", Label: "Email  address"}
	b := Descriptor{UID: "ff-9", Tag: "INPUT", Type: "Email", Name: "EMAIL", Label: " email address "}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	base := Descriptor{Tag: "select", Name: "country", Options: []string{"Canada", "Mexico"}}

	variants := []Descriptor{
		{Tag: "select", Name: "country", Options: []string{"Canada"}},
		{Tag: "select", Name: "country", Options: []string{"Mexico", "Canada"}},
		{Tag: "select", Name: "region", Options: []string{"Canada", "Mexico"}},
		{Tag: "select", Name: "country", ID: "c2", Options: []string{"Canada", "Mexico"}},
		{Tag: "input", Name: "country"},
	}
	for i, v := range variants {
		assert.NotEqual(t, base.Fingerprint(), v.Fingerprint(), "variant %d", i)
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// Shifting text between label and name must not collide.
	a := Descriptor{Tag: "input", Label: "ab", Name: "c"}
	b := Descriptor{Tag: "input", Label: "a", Name: "bc"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeValue("  hello \n\t world  "))
	assert.Equal(t, "", NormalizeValue(" \n "))
}

func TestDescribe(t *testing.T) {
	raw := RawField{
		Tag:         "SELECT",
		Name:        "country",
		Label:       " Country\n of residence ",
		Required:    true,
		Options:     []Choice{{Text: "", Value: ""}, {Text: "United  States", Value: "us"}, {Text: "", Value: "ca"}},
		Placeholder: "",
	}

	d := Describe("ff-3", raw)
	assert.Equal(t, "ff-3", d.UID)
	assert.Equal(t, "select", d.Tag)
	assert.Equal(t, "Country of residence", d.Label)
	assert.True(t, d.Required)
	assert.Equal(t, []string{"United States", "ca"}, d.Options)
	assert.False(t, d.Sensitive)
}

func TestDescribe_OptionCap(t *testing.T) {
	raw := RawField{Tag: "select", Name: "n"}
	for i := 0; i < 80; i++ {
		raw.Options = append(raw.Options, Choice{Text: fmt.Sprintf("Option %d", i)})
	}
	d := Describe("ff-1", raw)
	require.Len(t, d.Options, MaxOptions)
	assert.Equal(t, "Option 49", d.Options[MaxOptions-1])
}

func TestDescribe_OptionsOnlyForSelect(t *testing.T) {
	d := Describe("ff-1", RawField{Tag: "input", Type: "radio", Name: "size", Options: []Choice{{Text: "x"}}})
	assert.Nil(t, d.Options)
}

func TestDescribe_Classifies(t *testing.T) {
	d := Describe("ff-1", RawField{Tag: "input", Type: "password", Name: "pw"})
	assert.True(t, d.Sensitive)
	assert.Equal(t, "input type password", d.SensitiveReason)
}

func TestIsFillableControl(t *testing.T) {
	assert.True(t, IsFillableControl("input", ""))
	assert.True(t, IsFillableControl("input", "email"))
	assert.True(t, IsFillableControl("textarea", ""))
	assert.True(t, IsFillableControl("select", ""))
	for _, typ := range []string{"hidden", "submit", "button", "reset", "file", "image", "range", "color", "HIDDEN"} {
		assert.False(t, IsFillableControl("input", typ), typ)
	}
	assert.False(t, IsFillableControl("button", ""))
}

func TestPlanFill_Select(t *testing.T) {
	raw := RawField{Tag: "select", Name: "country", Options: []Choice{
		{Text: "United States", Value: "us"},
		{Text: "Canada", Value: "ca"},
	}}

	w, err := PlanFill(raw, "canada", false)
	require.NoError(t, err)
	assert.Equal(t, Write{Kind: WriteSelect, Index: 1}, w)

	w, err = PlanFill(raw, "US", false)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Index, "exact value match")

	w, err = PlanFill(raw, "United", false)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Index, "option text contains value")

	w, err = PlanFill(raw, "Canada (CA)", false)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Index, "value contains option text")

	_, err = PlanFill(raw, "Mexico", false)
	assert.ErrorIs(t, err, ErrNoMatchingOption)
}

func TestPlanFill_SelectPrefersExactOverSubstring(t *testing.T) {
	raw := RawField{Tag: "select", Name: "c", Options: []Choice{
		{Text: "Russia"},
		{Text: "USA"},
		{Text: "US"},
	}}
	w, err := PlanFill(raw, "us", false)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Index)
}

func TestMatchChoice_ShortSubstringAmbiguity(t *testing.T) {
	// Known looseness: without an exact match the first containing option wins.
	idx, ok := MatchChoice([]Choice{{Text: "Russia"}, {Text: "USA"}}, "us")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestPlanFill_Checkbox(t *testing.T) {
	raw := RawField{Tag: "input", Type: "checkbox", Name: "subscribe"}

	for _, v := range []string{"yes", "TRUE", "1", "checked"} {
		w, err := PlanFill(raw, v, false)
		require.NoError(t, err, v)
		assert.Equal(t, Write{Kind: WriteCheckbox, Checked: true}, w)
	}
	for _, v := range []string{"no", "False", "0", "unchecked"} {
		w, err := PlanFill(raw, v, false)
		require.NoError(t, err, v)
		assert.Equal(t, Write{Kind: WriteCheckbox, Checked: false}, w)
	}

	_, err := PlanFill(raw, "maybe", false)
	assert.ErrorIs(t, err, ErrInvalidCheckboxValue)
}

func TestPlanFill_Radio(t *testing.T) {
	raw := RawField{Tag: "input", Type: "radio", Name: "size", Group: []Choice{
		{Text: "Small", Value: "s"},
		{Text: "Medium", Value: "m"},
		{Text: "Large", Value: "l"},
	}}

	w, err := PlanFill(raw, "large", false)
	require.NoError(t, err)
	assert.Equal(t, Write{Kind: WriteRadio, Index: 2}, w)

	w, err = PlanFill(raw, "M", false)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Index)

	_, err = PlanFill(raw, "huge", false)
	assert.ErrorIs(t, err, ErrNoMatchingRadio)

	raw.Name = ""
	_, err = PlanFill(raw, "large", false)
	assert.ErrorIs(t, err, ErrRadioWithoutGroup)
}

func TestPlanFill_Text(t *testing.T) {
	w, err := PlanFill(RawField{Tag: "input", Type: "email", Name: "email"}, "  a@b.example \n ", false)
	require.NoError(t, err)
	assert.Equal(t, Write{Kind: WriteText, Text: "a@b.example"}, w)

	w, err = PlanFill(RawField{Tag: "textarea", Name: "bio"}, "line one\nline two", false)
	require.NoError(t, err)
	assert.Equal(t, "line one line two", w.Text)
}

func TestPlanFill_EmptyValue(t *testing.T) {
	_, err := PlanFill(RawField{Tag: "input", Type: "text", Name: "city"}, " \t ", false)
	assert.ErrorIs(t, err, ErrEmptyValue)
}

func TestPlanFill_Sensitive(t *testing.T) {
	raw := RawField{Tag: "input", Type: "password", Name: "pw"}

	_, err := PlanFill(raw, "hunter2", false)
	assert.ErrorIs(t, err, ErrSensitiveRefused)

	w, err := PlanFill(raw, "hunter2", true)
	require.NoError(t, err)
	assert.Equal(t, WriteText, w.Kind)
}

func TestPlanFill_UnsupportedControl(t *testing.T) {
	_, err := PlanFill(RawField{Tag: "input", Type: "file", Name: "cv"}, "x", false)
	assert.True(t, errors.Is(err, ErrUnsupportedControl))
}
