// Package sensitivity decides whether a form control carries a secret or a
// regulated personal datum that must not be filled in bulk.
//
// Classification is a flat, ordered rule table: the first matching rule wins.
// The same evaluator serves both call shapes used by the rest of the module:
// Classify takes detached Metadata (a descriptor that crossed the page
// boundary) and ClassifyElement takes anything that can report its attributes
// (a live element inside a page context).
package sensitivity

import (
	"regexp"
	"strings"
)

// Metadata is the subset of a form control's attributes the rules inspect.
type Metadata struct {
	Tag          string
	Type         string
	Name         string
	ID           string
	Placeholder  string
	Label        string
	AriaLabel    string
	Autocomplete string
}

// Source is implemented by live elements that can describe themselves.
type Source interface {
	SensitivityMetadata() Metadata
}

// Result is the classifier output attached to descriptors.
type Result struct {
	Sensitive bool   `json:"sensitive"`
	Reason    string `json:"reason,omitempty"`
}

// Rule is one entry of the ordered rule table.
type Rule struct {
	Name  string
	Match func(Metadata) (string, bool)
}

var sensitiveTypes = map[string]bool{
	"password": true,
}

var sensitiveAutocomplete = map[string]bool{
	"current-password":   true,
	"new-password":       true,
	"one-time-code":      true,
	"cc-name":            true,
	"cc-given-name":      true,
	"cc-additional-name": true,
	"cc-family-name":     true,
	"cc-number":          true,
	"cc-exp":             true,
	"cc-exp-month":       true,
	"cc-exp-year":        true,
	"cc-csc":             true,
	"cc-type":            true,
	"transaction-amount": true,
	"bday":               true,
	"bday-day":           true,
	"bday-month":         true,
	"bday-year":          true,
	"tel":                true,
	"tel-country-code":   true,
	"tel-national":       true,
	"tel-area-code":      true,
	"tel-local":          true,
	"tel-extension":      true,
	"sex":                true,
}

// Short terms are bounded by non-letters so "otp" does not match "footprint";
// "_" and "-" count as separators, which \b would not give us.
var sensitiveText = regexp.MustCompile(`(?i)(password|passwd|passcode|passphrase|one[\s_-]?time|two[\s_-]?factor|verification[\s_-]?code|security[\s_-]?code|auth(entication)?[\s_-]?code|card[\s_-]?(number|no|holder|verification)|credit[\s_-]?card|debit[\s_-]?card|routing[\s_-]?(number|no)|account[\s_-]?(number|no)|sort[\s_-]?code|bank|social[\s_-]?security|tax[\s_-]?id|passport|driver'?s?[\s_-]?licen[cs]e|national[\s_-]?id|secret|private[\s_-]?key|api[\s_-]?key|(^|[^a-z])(pass|pwd|pin|otp|2fa|mfa|cvv|cvc|csc|iban|swift|bic|ssn|tin|token)([^a-z]|$))`)

// DefaultRules is the rule table, in evaluation order.
var DefaultRules = []Rule{
	{Name: "type", Match: matchType},
	{Name: "autocomplete", Match: matchAutocomplete},
	{Name: "text", Match: matchText},
}

func matchType(m Metadata) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(m.Type))
	if sensitiveTypes[t] {
		return "input type " + t, true
	}
	return "", false
}

func matchAutocomplete(m Metadata) (string, bool) {
	for _, token := range strings.Fields(strings.ToLower(m.Autocomplete)) {
		if sensitiveAutocomplete[token] {
			return "autocomplete " + token, true
		}
	}
	return "", false
}

func matchText(m Metadata) (string, bool) {
	text := strings.Join([]string{m.Label, m.Name, m.ID, m.Placeholder, m.AriaLabel}, " ")
	if hit := sensitiveText.FindString(text); hit != "" {
		return "matches sensitive term " + strings.ToLower(strings.Trim(hit, " _-.:")), true
	}
	return "", false
}

// Classify evaluates the default rule table against detached metadata.
func Classify(m Metadata) Result {
	return Evaluate(DefaultRules, m)
}

// ClassifyElement evaluates the default rule table against a live element.
func ClassifyElement(src Source) Result {
	return Evaluate(DefaultRules, src.SensitivityMetadata())
}

// Evaluate runs rules in order and returns the first match.
func Evaluate(rules []Rule, m Metadata) Result {
	for _, rule := range rules {
		if reason, ok := rule.Match(m); ok {
			return Result{Sensitive: true, Reason: reason}
		}
	}
	return Result{}
}
