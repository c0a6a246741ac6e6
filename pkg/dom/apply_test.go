package dom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/entrhq/formfill/pkg/fields"
)

func findNode(doc *Document, tag string) *html.Node {
	var found *html.Node
	walk(doc.Root(), func(n *html.Node) bool {
		if found == nil && tagName(n) == tag {
			found = n
		}
		return found == nil
	})
	return found
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data}
	c.Attr = append([]html.Attribute(nil), n.Attr...)
	return c
}

func uidOf(t *testing.T, doc *Document, name string, includeSensitive bool) string {
	t.Helper()
	descs, err := doc.ListFields(context.Background(), includeSensitive)
	require.NoError(t, err)
	return findByName(t, descs, name).UID
}

func element(t *testing.T, doc *Document, uid string) *Element {
	t.Helper()
	el, ok := doc.Element(uid)
	require.True(t, ok)
	return el
}

func TestFillField_Text(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "fullName", false)

	require.NoError(t, doc.FillField(context.Background(), uid, "  Ada \n  Lovelace ", false))

	assert.Equal(t, "Ada Lovelace", element(t, doc, uid).Value())
	assert.Equal(t, []Event{{UID: uid, Type: "input"}, {UID: uid, Type: "change"}}, doc.Events())
}

func TestFillField_Textarea(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "cover", false)

	require.NoError(t, doc.FillField(context.Background(), uid, "I build forms.", false))
	assert.Equal(t, "I build forms.", element(t, doc, uid).Value())
}

func TestFillField_Select(t *testing.T) {
	tests := []struct {
		name  string
		value string
		text  string
		val   string
	}{
		{"exact text case-insensitive", "canada", "Canada", "ca"},
		{"exact value", "US", "United States", "us"},
		{"containment", "United", "United States", "us"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, applicationForm)
			uid := uidOf(t, doc, "country", false)

			require.NoError(t, doc.FillField(context.Background(), uid, tt.value, false))
			el := element(t, doc, uid)
			assert.Equal(t, tt.text, el.SelectedText())
			assert.Equal(t, tt.val, el.Value())
		})
	}
}

func TestFillField_SelectNoMatchLeavesDocument(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "country", false)
	before := doc.String()

	err := doc.FillField(context.Background(), uid, "Atlantis", false)
	assert.ErrorIs(t, err, fields.ErrNoMatchingOption)
	assert.Equal(t, before, doc.String())
	assert.Empty(t, doc.Events())
}

func TestFillField_Checkbox(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "relocate", false)
	ctx := context.Background()

	require.NoError(t, doc.FillField(ctx, uid, "yes", false))
	assert.True(t, element(t, doc, uid).Checked())

	before := doc.String()
	err := doc.FillField(ctx, uid, "maybe", false)
	assert.ErrorIs(t, err, fields.ErrInvalidCheckboxValue)
	assert.True(t, element(t, doc, uid).Checked())
	assert.Equal(t, before, doc.String())

	require.NoError(t, doc.FillField(ctx, uid, "unchecked", false))
	assert.False(t, element(t, doc, uid).Checked())
}

func TestFillField_RadioGroup(t *testing.T) {
	doc := mustParse(t, applicationForm)
	descs, err := doc.ListFields(context.Background(), false)
	require.NoError(t, err)

	var radios []string
	for _, d := range descs {
		if d.Name == "size" {
			radios = append(radios, d.UID)
		}
	}
	require.Len(t, radios, 3)

	// Any radio in the group targets the whole group.
	require.NoError(t, doc.FillField(context.Background(), radios[0], "medium", false))
	assert.False(t, element(t, doc, radios[0]).Checked())
	assert.True(t, element(t, doc, radios[1]).Checked())
	assert.False(t, element(t, doc, radios[2]).Checked())

	require.NoError(t, doc.FillField(context.Background(), radios[0], "l", false))
	assert.False(t, element(t, doc, radios[1]).Checked())
	assert.True(t, element(t, doc, radios[2]).Checked())
}

func TestFillField_RadioWithoutName(t *testing.T) {
	doc := mustParse(t, `<label><input type="radio" value="a"> A</label>`)
	descs, err := doc.ListFields(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, descs, 1)

	err = doc.FillField(context.Background(), descs[0].UID, "a", false)
	assert.ErrorIs(t, err, fields.ErrRadioWithoutGroup)
}

func TestFillField_SensitiveRefused(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "password", true)
	ctx := context.Background()

	err := doc.FillField(ctx, uid, "hunter2", false)
	assert.ErrorIs(t, err, fields.ErrSensitiveRefused)
	assert.Empty(t, element(t, doc, uid).Value())

	require.NoError(t, doc.FillField(ctx, uid, "hunter2", true))
	assert.Equal(t, "hunter2", element(t, doc, uid).Value())
}

func TestFillField_ReclassifiesAtApplyTime(t *testing.T) {
	doc := mustParse(t, `<input name="code">`)
	uid := uidOf(t, doc, "code", false)

	// The page turns the field into a password input after collection.
	setAttr(findNode(doc, "input"), "type", "password")

	err := doc.FillField(context.Background(), uid, "123456", false)
	assert.ErrorIs(t, err, fields.ErrSensitiveRefused)
}

func TestFillField_EmptyValue(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "fullName", false)

	err := doc.FillField(context.Background(), uid, " \t\n ", false)
	assert.ErrorIs(t, err, fields.ErrEmptyValue)
	assert.Empty(t, doc.Events())
}

func TestFillField_RemovedNode(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "fullName", false)

	n := findNode(doc, "input")
	n.Parent.RemoveChild(n)

	err := doc.FillField(context.Background(), uid, "Ada", false)
	assert.ErrorIs(t, err, fields.ErrFieldNotFound)

	err = doc.FillField(context.Background(), "ff-404", "Ada", false)
	assert.ErrorIs(t, err, fields.ErrFieldNotFound)
}

func TestFillField_Listener(t *testing.T) {
	doc := mustParse(t, applicationForm)
	uid := uidOf(t, doc, "email", false)

	var got []string
	doc.OnEvent(func(ev Event) { got = append(got, ev.Type) })

	require.NoError(t, doc.FillField(context.Background(), uid, "ada@example.com", false))
	assert.Equal(t, []string{"input", "change"}, got)
}
