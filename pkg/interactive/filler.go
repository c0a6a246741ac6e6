// Package interactive fills one field on explicit user request, asking for
// confirmation before touching a sensitive field.
package interactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/formfill/pkg/autofill"
	"github.com/entrhq/formfill/pkg/config"
	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/logging"
	"github.com/entrhq/formfill/pkg/security/sites"
	"github.com/entrhq/formfill/pkg/types"
)

// ErrNoActiveField is returned by Session.FillActive when nothing is hovered.
var ErrNoActiveField = errors.New("no active field")

// Confirmer asks the user whether a sensitive field may be filled.
type Confirmer interface {
	Confirm(ctx context.Context, field fields.Descriptor) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, field fields.Descriptor) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, field fields.Descriptor) (bool, error) {
	return f(ctx, field)
}

// Outcome is the field-level result of one fill request.
type Outcome struct {
	UID    string
	Label  string
	Status types.FieldStatus
	Err    error
}

// Filler runs the single-field flow. It shares the page, retrieval and
// classification components with autofill but never batches.
type Filler struct {
	credentials autofill.CredentialSource
	newAnswerer autofill.AnswererFactory
	confirmer   Confirmer
	policy      *sites.Policy
	onEvent     autofill.EventHandler
	logger      *logging.Logger
}

// Option configures a Filler.
type Option func(*Filler)

// WithConfirmer sets who is asked about sensitive fields. Without one,
// sensitive fields are declined.
func WithConfirmer(c Confirmer) Option {
	return func(f *Filler) {
		f.confirmer = c
	}
}

// WithAnswererFactory replaces the default retrieval client.
func WithAnswererFactory(factory autofill.AnswererFactory) Option {
	return func(f *Filler) {
		f.newAnswerer = factory
	}
}

// WithSitePolicy refuses fills on pages the policy rejects.
func WithSitePolicy(p *sites.Policy) Option {
	return func(f *Filler) {
		f.policy = p
	}
}

// WithEventHandler receives a field_progress event per request.
func WithEventHandler(h autofill.EventHandler) Option {
	return func(f *Filler) {
		f.onEvent = h
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Filler) {
		f.logger = l
	}
}

// NewFiller creates a Filler resolving credentials from creds on every
// request.
func NewFiller(creds autofill.CredentialSource, opts ...Option) *Filler {
	f := &Filler{credentials: creds}
	for _, opt := range opts {
		opt(f)
	}
	if f.newAnswerer == nil {
		f.newAnswerer = autofill.NewAnswerer(config.DefaultTuning().RequestTimeout, f.logger, nil)
	}
	return f
}

// FillField re-reads uid from the live page and fills it. Every failure is
// reported through the outcome; a declined confirmation is not an error.
func (f *Filler) FillField(ctx context.Context, page fields.Page, uid string) Outcome {
	out := f.fill(ctx, page, uid)
	if out.Label == "" {
		out.Label = uid
	}
	switch out.Status {
	case types.FieldStatusError:
		f.logger.Warnf("fill %s failed: %v", uid, out.Err)
	default:
		f.logger.Infof("fill %s: %s", uid, out.Status)
	}
	if f.onEvent != nil {
		progress := types.FieldProgress{UID: uid, Label: out.Label, Status: out.Status}
		if out.Err != nil {
			progress.Detail = out.Err.Error()
		}
		f.onEvent(types.NewFieldProgressEvent("", progress))
	}
	return out
}

func (f *Filler) fill(ctx context.Context, page fields.Page, uid string) Outcome {
	out := Outcome{UID: uid, Status: types.FieldStatusError}

	answerer, err := f.prepare(page)
	if err != nil {
		out.Err = err
		return out
	}

	desc, err := page.DescribeField(ctx, uid)
	if err != nil {
		out.Err = err
		return out
	}
	out.Label = desc.Label

	confirmed := false
	if desc.Sensitive {
		if f.confirmer == nil {
			out.Status = types.FieldStatusDeclined
			return out
		}
		confirmed, err = f.confirmer.Confirm(ctx, desc)
		if err != nil {
			out.Err = fmt.Errorf("failed to confirm sensitive fill: %w", err)
			return out
		}
		if !confirmed {
			out.Status = types.FieldStatusDeclined
			return out
		}
	}

	result, err := answerer.AnswerBatch(ctx, []fields.Descriptor{desc})
	if err != nil {
		out.Err = err
		return out
	}
	answer := result.Answers[uid]
	if answer == "" {
		out.Status = types.FieldStatusNotFound
		return out
	}

	if err := page.FillField(ctx, uid, answer, confirmed); err != nil {
		out.Err = err
		return out
	}
	out.Status = types.FieldStatusFilled
	return out
}

func (f *Filler) prepare(page fields.Page) (autofill.Answerer, error) {
	if f.credentials == nil {
		return nil, fmt.Errorf("%w: no credential source", autofill.ErrConfiguration)
	}
	creds, err := f.credentials.Credentials()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", autofill.ErrConfiguration, err)
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", autofill.ErrConfiguration, err)
	}
	if err := f.policy.Check(page.URL()); err != nil {
		return nil, fmt.Errorf("%w: %w", autofill.ErrConfiguration, err)
	}
	answerer, err := f.newAnswerer(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create retrieval client: %w", autofill.ErrConfiguration, err)
	}
	return answerer, nil
}
