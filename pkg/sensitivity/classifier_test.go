package sensitivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeElement struct {
	meta Metadata
}

func (f fakeElement) SensitivityMetadata() Metadata { return f.meta }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		meta      Metadata
		sensitive bool
		reason    string
	}{
		{
			name:      "password input",
			meta:      Metadata{Tag: "input", Type: "password", Name: "login"},
			sensitive: true,
			reason:    "input type password",
		},
		{
			name:      "password type is case insensitive",
			meta:      Metadata{Tag: "input", Type: "PASSWORD"},
			sensitive: true,
			reason:    "input type password",
		},
		{
			name:      "autocomplete token among several",
			meta:      Metadata{Tag: "input", Type: "text", Autocomplete: "section-billing CC-Number"},
			sensitive: true,
			reason:    "autocomplete cc-number",
		},
		{
			name:      "phone autocomplete",
			meta:      Metadata{Tag: "input", Type: "text", Autocomplete: "tel"},
			sensitive: true,
			reason:    "autocomplete tel",
		},
		{
			name:      "one time code label",
			meta:      Metadata{Tag: "input", Type: "text", Label: "Enter your One-Time code"},
			sensitive: true,
		},
		{
			name:      "otp in name with underscore",
			meta:      Metadata{Tag: "input", Type: "text", Name: "user_otp"},
			sensitive: true,
		},
		{
			name:      "iban placeholder",
			meta:      Metadata{Tag: "input", Type: "text", Placeholder: "IBAN"},
			sensitive: true,
		},
		{
			name:      "ssn aria label",
			meta:      Metadata{Tag: "input", Type: "text", AriaLabel: "SSN"},
			sensitive: true,
		},
		{
			name:      "camel case password id",
			meta:      Metadata{Tag: "input", Type: "text", ID: "confirmPassword"},
			sensitive: true,
		},
		{
			name: "otp inside an ordinary word",
			meta: Metadata{Tag: "input", Type: "text", Label: "Carbon footprint"},
		},
		{
			name: "plain email field",
			meta: Metadata{Tag: "input", Type: "email", Name: "email", Label: "Email", Autocomplete: "email"},
		},
		{
			name: "company name",
			meta: Metadata{Tag: "input", Type: "text", Label: "Company name", Autocomplete: "organization"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.meta)
			assert.Equal(t, tt.sensitive, got.Sensitive)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, got.Reason)
			}
			if !tt.sensitive {
				assert.Empty(t, got.Reason)
			}
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	// Type rule precedes the autocomplete and text rules.
	got := Classify(Metadata{Type: "password", Autocomplete: "cc-number", Label: "Bank PIN"})
	assert.True(t, got.Sensitive)
	assert.Equal(t, "input type password", got.Reason)

	got = Classify(Metadata{Type: "text", Autocomplete: "bday", Label: "Bank"})
	assert.Equal(t, "autocomplete bday", got.Reason)
}

func TestClassifyElement_MatchesDetachedShape(t *testing.T) {
	metas := []Metadata{
		{Tag: "input", Type: "password"},
		{Tag: "input", Type: "text", Label: "Card number"},
		{Tag: "textarea", Label: "Cover letter"},
		{Tag: "select", Name: "country"},
	}
	for _, m := range metas {
		assert.Equal(t, Classify(m), ClassifyElement(fakeElement{meta: m}))
	}
}

func TestEvaluate_CustomRules(t *testing.T) {
	rules := []Rule{{
		Name: "always",
		Match: func(Metadata) (string, bool) {
			return "custom", true
		},
	}}
	assert.Equal(t, Result{Sensitive: true, Reason: "custom"}, Evaluate(rules, Metadata{}))
	assert.Equal(t, Result{}, Evaluate(nil, Metadata{Type: "password"}))
}
