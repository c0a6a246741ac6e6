// Package autofill runs a whole-page autofill: collect eligible fields,
// deduplicate them by fingerprint, answer them in bounded-concurrency batches
// with retry, then apply answers in page order.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/formfill/pkg/config"
	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/llm/tokenizer"
	"github.com/entrhq/formfill/pkg/logging"
	"github.com/entrhq/formfill/pkg/retrieval"
	"github.com/entrhq/formfill/pkg/retry"
	"github.com/entrhq/formfill/pkg/security/sites"
	"github.com/entrhq/formfill/pkg/types"
	"github.com/entrhq/formfill/pkg/workpool"
	"github.com/google/uuid"
)

// ErrConfiguration marks failures that stop a run before any field is
// touched: missing credentials, an unusable client, or a refused site.
var ErrConfiguration = errors.New("configuration error")

// Answerer answers one batch of descriptors.
type Answerer interface {
	AnswerBatch(ctx context.Context, batch []fields.Descriptor) (*retrieval.Result, error)
}

// AnswererFactory builds an Answerer from a credentials snapshot.
type AnswererFactory func(creds retrieval.Credentials) (Answerer, error)

// CredentialSource resolves credentials once per run.
type CredentialSource interface {
	Credentials() (retrieval.Credentials, error)
}

var _ CredentialSource = config.CredentialSource{}

// EventHandler receives run events. Calls are serialized.
type EventHandler func(event *types.Event)

// Engine runs autofill passes over pages. An Engine holds no per-run state
// and may be reused.
type Engine struct {
	credentials CredentialSource
	newAnswerer AnswererFactory
	policy      *sites.Policy
	tuning      config.Tuning
	retry       retry.Policy
	onEvent     EventHandler
	logger      *logging.Logger
	tokenizer   *tokenizer.Tokenizer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTuning replaces batch size, concurrency, retry and timeout settings.
func WithTuning(t config.Tuning) Option {
	return func(e *Engine) {
		e.tuning = t
	}
}

// WithRetryPolicy overrides the policy derived from tuning. A nil Retryable
// predicate is replaced with retrieval.IsRetryable.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithSitePolicy refuses runs on pages the policy rejects.
func WithSitePolicy(p *sites.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithAnswererFactory replaces the default retrieval client.
func WithAnswererFactory(f AnswererFactory) Option {
	return func(e *Engine) {
		e.newAnswerer = f
	}
}

// WithEventHandler sets the receiver of progress events.
func WithEventHandler(h EventHandler) Option {
	return func(e *Engine) {
		e.onEvent = h
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTokenizer is passed to the default retrieval client for prompt
// estimates.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(e *Engine) {
		e.tokenizer = t
	}
}

// NewEngine creates an engine that resolves credentials from creds.
func NewEngine(creds CredentialSource, opts ...Option) *Engine {
	e := &Engine{
		credentials: creds,
		tuning:      config.DefaultTuning(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.retry.MaxAttempts == 0 {
		e.retry = retry.Policy{
			MaxAttempts: e.tuning.MaxAttempts,
			BaseDelay:   e.tuning.BaseDelay,
			MaxDelay:    e.tuning.MaxDelay,
			Jitter:      e.tuning.Jitter,
		}
	}
	if e.retry.Retryable == nil {
		e.retry.Retryable = retrieval.IsRetryable
	}
	if e.newAnswerer == nil {
		e.newAnswerer = e.defaultAnswerer
	}
	return e
}

// NewAnswerer returns a factory building retrieval clients with the given
// timeout, logger and tokenizer.
func NewAnswerer(timeout time.Duration, logger *logging.Logger, tok *tokenizer.Tokenizer) AnswererFactory {
	return func(creds retrieval.Credentials) (Answerer, error) {
		client, err := retrieval.NewClient(creds,
			retrieval.WithTimeout(timeout),
			retrieval.WithLogger(logger.With("retrieval")),
			retrieval.WithTokenizer(tok),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func (e *Engine) defaultAnswerer(creds retrieval.Credentials) (Answerer, error) {
	return NewAnswerer(e.tuning.RequestTimeout, e.logger, e.tokenizer)(creds)
}

// HasFields reports whether page has anything to fill. It assigns no uids.
func (e *Engine) HasFields(ctx context.Context, page fields.Page) (bool, error) {
	ok, err := page.HasFillableForms(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to inspect page: %w", err)
	}
	return ok, nil
}

// FieldResult is the outcome for one field of the original field list.
type FieldResult struct {
	UID         string
	Label       string
	Fingerprint string
	Status      types.FieldStatus
	Detail      string
	Err         error
}

// Report is the result of one run.
type Report struct {
	RunID   string
	State   State
	States  []State
	Fields  []FieldResult
	Summary types.Summary
}

// Run performs one autofill pass over page. Errors from individual fields
// or batches are recorded in the report and never end the run; only
// configuration failures and an unreadable page return an error. A page
// with no eligible fields is a successful run with zero calls.
func (e *Engine) Run(ctx context.Context, page fields.Page) (*Report, error) {
	r := &run{
		engine:   e,
		id:       uuid.New().String(),
		machine:  newMachine(),
		logger:   e.logger.With("run"),
		started:  time.Now(),
		answers:  make(map[string]string),
		failures: make(map[string]error),
		resolved: make(map[string]bool),
	}
	return r.execute(ctx, page)
}

type run struct {
	engine  *Engine
	id      string
	machine *machine
	logger  *logging.Logger
	started time.Time

	emitMu sync.Mutex

	mu       sync.Mutex
	answers  map[string]string
	failures map[string]error
	resolved map[string]bool
	summary  types.Summary
}

func (r *run) emit(event *types.Event) {
	if r.engine.onEvent == nil {
		return
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.engine.onEvent(event)
}

func (r *run) enter(s State) error {
	if err := r.machine.transition(s); err != nil {
		return err
	}
	r.logger.Debugf("run %s entered %s", r.id, s)
	r.emit(types.NewStateChangedEvent(r.id, string(s)))
	return nil
}

func (r *run) report(results []FieldResult) *Report {
	r.mu.Lock()
	summary := r.summary
	r.mu.Unlock()
	summary.Duration = time.Since(r.started).Round(time.Millisecond).String()
	return &Report{
		RunID:   r.id,
		State:   r.machine.current(),
		States:  r.machine.path(),
		Fields:  results,
		Summary: summary,
	}
}

func (r *run) abandon(err error) (*Report, error) {
	if terr := r.enter(StateAbandoned); terr != nil {
		r.logger.Errorf("run %s: %v", r.id, terr)
	}
	r.logger.Warnf("run %s abandoned: %v", r.id, err)
	r.emit(types.NewRunAbandonedEvent(r.id, err))
	return r.report(nil), err
}

func (r *run) execute(ctx context.Context, page fields.Page) (*Report, error) {
	e := r.engine
	r.emit(types.NewRunStartEvent(r.id, page.URL()))
	r.logger.Infof("run %s started on %s", r.id, page.URL())

	answerer, err := r.prepare(page)
	if err != nil {
		return r.abandon(err)
	}

	if err := r.enter(StateCollecting); err != nil {
		return r.abandon(err)
	}
	descs, err := page.ListFields(ctx, false)
	if err != nil {
		return r.abandon(fmt.Errorf("failed to collect fields: %w", err))
	}
	if len(descs) == 0 {
		r.logger.Infof("run %s: no fillable fields", r.id)
		if err := r.enter(StateCompleted); err != nil {
			return r.abandon(err)
		}
		r.emit(types.NewNoFieldsEvent(r.id))
		return r.report(nil), nil
	}

	if err := r.enter(StateDeduplicating); err != nil {
		return r.abandon(err)
	}
	groups := Deduplicate(descs)

	if err := r.enter(StateBatching); err != nil {
		return r.abandon(err)
	}
	batches := Partition(groups, e.tuning.BatchSize)
	r.summary.Fields = len(descs)
	r.summary.Unique = len(groups)
	r.summary.Batches = len(batches)
	r.logger.Infof("run %s: %d fields, %d unique, %d batches", r.id, len(descs), len(groups), len(batches))

	if err := r.enter(StateRetrieving); err != nil {
		return r.abandon(err)
	}
	if err := workpool.Run(ctx, len(batches), e.tuning.Concurrency, func(ctx context.Context, i int) {
		r.retrieve(ctx, answerer, i, batches[i])
	}); err != nil {
		r.logger.Warnf("run %s: retrieval stopped early: %v", r.id, err)
		r.failUnresolved(groups, err)
	}

	if err := r.enter(StateApplying); err != nil {
		return r.abandon(err)
	}
	results := r.apply(ctx, page, descs)

	if err := r.enter(StateCompleted); err != nil {
		return r.abandon(err)
	}
	rep := r.report(results)
	r.logger.Infof("run %s complete: %d filled, %d skipped in %s", r.id, rep.Summary.Filled, rep.Summary.Skipped, rep.Summary.Duration)
	r.emit(types.NewSummaryEvent(r.id, rep.Summary))
	return rep, nil
}

// prepare resolves credentials and checks the site before any page access.
func (r *run) prepare(page fields.Page) (Answerer, error) {
	e := r.engine
	if e.credentials == nil {
		return nil, fmt.Errorf("%w: no credential source", ErrConfiguration)
	}
	creds, err := e.credentials.Credentials()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := e.policy.Check(page.URL()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	answerer, err := e.newAnswerer(creds)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create retrieval client: %w", ErrConfiguration, err)
	}
	return answerer, nil
}

// retrieve answers one batch with retry and buffers the outcome per
// fingerprint.
func (r *run) retrieve(ctx context.Context, answerer Answerer, index int, batch []Group) {
	descs := make([]fields.Descriptor, len(batch))
	for i, g := range batch {
		descs[i] = g.Representative
	}
	info := types.BatchInfo{Index: index, Size: len(batch)}

	policy := r.engine.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		retryInfo := info
		retryInfo.Attempt = attempt
		r.logger.Warnf("run %s: batch %d attempt %d failed, retrying in %s: %v", r.id, index, attempt, delay, err)
		r.emit(types.NewBatchRetryEvent(r.id, retryInfo, err))
	}

	result, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*retrieval.Result, error) {
		attemptInfo := info
		attemptInfo.Attempt = attempt
		r.emit(types.NewBatchStartEvent(r.id, attemptInfo))
		r.mu.Lock()
		r.summary.Calls++
		r.mu.Unlock()
		return answerer.AnswerBatch(ctx, descs)
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range batch {
		r.resolved[g.Fingerprint] = true
	}
	if err != nil {
		for _, g := range batch {
			r.failures[g.Fingerprint] = err
		}
		r.logger.Errorf("run %s: batch %d failed: %v", r.id, index, err)
		r.emit(types.NewBatchFailedEvent(r.id, info, err))
		return
	}

	info.EstimatedTokens = result.EstimatedTokens
	r.summary.EstimatedTokens += result.EstimatedTokens
	r.summary.Usage.Add(result.Usage)
	for _, g := range batch {
		if answer := result.Answers[g.Representative.UID]; answer != "" {
			r.answers[g.Fingerprint] = answer
		}
	}
	r.emit(types.NewBatchCompleteEvent(r.id, info))
	if result.Usage.TotalTokens > 0 {
		r.emit(types.NewTokenUsageEvent(r.id, result.Usage))
	}
}

// failUnresolved records err for groups whose batch never started.
func (r *run) failUnresolved(groups []Group, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range groups {
		if r.resolved[g.Fingerprint] {
			continue
		}
		r.resolved[g.Fingerprint] = true
		r.failures[g.Fingerprint] = fmt.Errorf("batch not sent: %w", err)
	}
}

// apply replays buffered outcomes over the original field list in page
// order.
func (r *run) apply(ctx context.Context, page fields.Page, descs []fields.Descriptor) []FieldResult {
	results := make([]FieldResult, 0, len(descs))
	for _, d := range descs {
		res := FieldResult{UID: d.UID, Label: displayLabel(d), Fingerprint: d.Fingerprint()}

		r.mu.Lock()
		failure := r.failures[res.Fingerprint]
		answer := r.answers[res.Fingerprint]
		r.mu.Unlock()

		valueLength := 0
		switch {
		case failure != nil:
			res.Status = types.FieldStatusError
			res.Err = failure
			res.Detail = failure.Error()
		case answer == "":
			res.Status = types.FieldStatusNotFound
		default:
			if err := page.FillField(ctx, d.UID, answer, false); err != nil {
				res.Status = types.FieldStatusSkipped
				res.Err = err
				res.Detail = err.Error()
				r.logger.Debugf("run %s: skipped %s: %v", r.id, d.UID, err)
			} else {
				res.Status = types.FieldStatusFilled
				valueLength = len(answer)
				r.logger.Debugf("run %s: filled %s (%d chars)", r.id, d.UID, valueLength)
			}
		}

		r.mu.Lock()
		switch res.Status {
		case types.FieldStatusFilled:
			r.summary.Filled++
		case types.FieldStatusNotFound:
			r.summary.NotFound++
			r.summary.Skipped++
		case types.FieldStatusError:
			r.summary.Errors++
			r.summary.Skipped++
		default:
			r.summary.Skipped++
		}
		r.mu.Unlock()

		r.emit(types.NewFieldProgressEvent(r.id, types.FieldProgress{
			UID:         d.UID,
			Label:       res.Label,
			Status:      res.Status,
			Detail:      res.Detail,
			ValueLength: valueLength,
		}))
		results = append(results, res)
	}
	return results
}

func displayLabel(d fields.Descriptor) string {
	for _, s := range []string{d.Label, d.AriaLabel, d.Placeholder, d.Name, d.ID} {
		if s != "" {
			return s
		}
	}
	return d.UID
}
