package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/entrhq/formfill/pkg/fields"
)

// FormPage implements fields.Page over a live session. Extraction and
// writes run as page scripts; fill decisions are made in Go by
// fields.PlanFill so both page contexts share one rule set.
type FormPage struct {
	session *Session
	mu      sync.Mutex
}

var _ fields.Page = (*FormPage)(nil)

type collected struct {
	UID string          `json:"uid"`
	Raw fields.RawField `json:"raw"`
}

// URL returns the current page URL.
func (p *FormPage) URL() string {
	return p.session.Page.URL()
}

// ListFields stamps and describes eligible controls in document order.
func (p *FormPage) ListFields(ctx context.Context, includeSensitive bool) ([]fields.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var items []collected
	if err := p.evaluate(ctx, collectScript, map[string]interface{}{"stamp": true}, &items); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	return describeAll(items, includeSensitive), nil
}

// HasFillableForms collects without stamping.
func (p *FormPage) HasFillableForms(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var items []collected
	if err := p.evaluate(ctx, collectScript, map[string]interface{}{"stamp": false}, &items); err != nil {
		return false, fmt.Errorf("failed to check fields: %w", err)
	}
	return len(describeAll(items, false)) > 0, nil
}

// DescribeField re-extracts the element stamped with uid.
func (p *FormPage) DescribeField(ctx context.Context, uid string) (fields.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := p.raw(ctx, uid)
	if err != nil {
		return fields.Descriptor{}, err
	}
	return fields.Describe(uid, raw), nil
}

// FillField plans the write from the element's current state and performs it.
func (p *FormPage) FillField(ctx context.Context, uid, value string, allowSensitive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := p.raw(ctx, uid)
	if err != nil {
		return err
	}
	w, err := fields.PlanFill(raw, value, allowSensitive)
	if err != nil {
		return err
	}

	var applied bool
	arg := map[string]interface{}{
		"uid":     uid,
		"kind":    string(w.Kind),
		"text":    w.Text,
		"index":   w.Index,
		"checked": w.Checked,
	}
	if err := p.evaluateRaw(ctx, applyScript, arg, &applied); err != nil {
		return fmt.Errorf("failed to fill %s: %w", uid, err)
	}
	if !applied {
		return fmt.Errorf("%w: %s", fields.ErrFieldNotFound, uid)
	}
	return nil
}

func (p *FormPage) raw(ctx context.Context, uid string) (fields.RawField, error) {
	var raw fields.RawField
	if uid == "" {
		return raw, fmt.Errorf("%w: empty uid", fields.ErrFieldNotFound)
	}

	var encoded string
	if err := p.evaluateRaw(ctx, describeScript, map[string]interface{}{"uid": uid}, &encoded); err != nil {
		return raw, fmt.Errorf("failed to describe %s: %w", uid, err)
	}
	if encoded == "" {
		return raw, fmt.Errorf("%w: %s", fields.ErrFieldNotFound, uid)
	}
	if err := json.Unmarshal([]byte(encoded), &raw); err != nil {
		return raw, fmt.Errorf("failed to decode field %s: %w", uid, err)
	}
	return raw, nil
}

// evaluate runs a script returning a JSON string and decodes it into out.
func (p *FormPage) evaluate(ctx context.Context, script string, arg interface{}, out interface{}) error {
	var encoded string
	if err := p.evaluateRaw(ctx, script, arg, &encoded); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(encoded), out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// evaluateRaw runs a script and stores its direct result, which must be a
// string or a bool.
func (p *FormPage) evaluateRaw(ctx context.Context, script string, arg interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.session.touch()

	result, err := p.session.Page.Evaluate(script, arg)
	if err != nil {
		return fmt.Errorf("page script failed: %w", err)
	}

	switch dst := out.(type) {
	case *string:
		s, ok := result.(string)
		if !ok {
			return fmt.Errorf("unexpected script result %T", result)
		}
		*dst = s
	case *bool:
		b, ok := result.(bool)
		if !ok {
			return fmt.Errorf("unexpected script result %T", result)
		}
		*dst = b
	default:
		return fmt.Errorf("unsupported result target %T", out)
	}
	return nil
}

func describeAll(items []collected, includeSensitive bool) []fields.Descriptor {
	out := make([]fields.Descriptor, 0, len(items))
	for _, item := range items {
		d := fields.Describe(item.UID, item.Raw)
		if d.Sensitive && !includeSensitive {
			continue
		}
		out = append(out, d)
	}
	return out
}
