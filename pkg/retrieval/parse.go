package retrieval

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// NotFound is the sentinel the model returns for unanswerable fields.
const NotFound = "NOT_FOUND"

const answerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object"
}`

var (
	fencePattern = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*\\s*\\n?(.*?)\\s*```$")

	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func answerMapSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("answers.json", strings.NewReader(answerSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("answers.json")
	})
	return schema, schemaErr
}

// ParseAnswers reads a model reply into cleaned answers for the given uids.
// Fenced code blocks are unwrapped; when the text is not JSON the outermost
// {...} span is tried. Keys outside uids are ignored and not-found answers
// are omitted.
func ParseAnswers(text string, uids []string) (map[string]string, error) {
	v, err := decodeObject(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	obj := v.(map[string]interface{})
	answers := make(map[string]string, len(uids))
	for _, uid := range uids {
		raw, ok := obj[uid]
		if !ok {
			continue
		}
		if answer := CleanAnswer(formatValue(raw)); answer != "" {
			answers[uid] = answer
		}
	}
	return answers, nil
}

func decodeObject(text string) (interface{}, error) {
	body := stripFences(text)
	if body == "" {
		return nil, fmt.Errorf("empty reply")
	}

	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in reply")
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &v); err != nil {
			return nil, fmt.Errorf("failed to decode reply: %w", err)
		}
	}

	s, err := answerMapSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(v); err != nil {
		return nil, fmt.Errorf("reply is not a JSON object: %w", err)
	}
	return v, nil
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	return t
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := CleanAnswer(formatValue(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// CleanAnswer trims an answer, strips one pair of wrapping quotes and maps
// the not-found sentinel to "".
func CleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	if strings.EqualFold(s, NotFound) {
		return ""
	}
	return s
}
