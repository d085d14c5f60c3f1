// Package orchestrator runs one player input through the narrative
// pipeline: rule gate, first pass, data resolution, embedded-command
// post-processing and routing.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tatianab/narrator/internal/embedded"
	"github.com/tatianab/narrator/internal/engine"
	"github.com/tatianab/narrator/internal/journal"
	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/parser"
	"github.com/tatianab/narrator/internal/prompt"
	"github.com/tatianab/narrator/internal/requests"
	"github.com/tatianab/narrator/internal/resolver"
	"github.com/tatianab/narrator/internal/router"
	"github.com/tatianab/narrator/internal/rules"
)

// DefaultRejection is shown when the validator rejects without a reason.
const DefaultRejection = "That action isn't possible right now."

// Validator is the rule gate.
type Validator interface {
	Validate(ctx context.Context, gctx models.GenerationContext) (rules.Verdict, error)
}

// Summarizer condenses long conversation history.
type Summarizer interface {
	Summarize(ctx context.Context, gctx models.GenerationContext) (models.HistorySummary, error)
}

// Resettable is implemented by collaborators holding per-session state.
type Resettable interface {
	Reset()
}

// Recorder stores processed turns.
type Recorder interface {
	Record(ctx context.Context, t journal.Turn) error
}

type Options struct {
	Service   engine.Service
	Validator Validator
	Query     resolver.StateQuerier
	Executor  router.ImmediateExecutor
	Handlers  embedded.Table

	Summarizer Summarizer
	// SummarizeAfter is the history length, in messages, above which
	// the summarizer runs.
	SummarizeAfter int

	Recorder  Recorder
	SessionID string
	Params    models.GenerationParams

	// Resettables are cleared by Reset in addition to the validator and
	// summarizer when those implement Resettable.
	Resettables []Resettable
	Log         *logging.Logger
}

// Result is what one player input produced.
type Result struct {
	TurnID    string
	Narrative string

	// Deferred commands are for the caller to apply.
	Deferred []requests.Command
	// Immediate reports commands that were already applied during the
	// call. They are for display only and must not be executed again.
	Immediate []router.Decision

	TimePassage time.Duration
	Rejected    bool

	// Failure is set when the first pass failed and Narrative is a
	// failure message.
	Failure FailureKind

	Method     parser.Method
	SecondPass bool
	Embedded   []embedded.Result
	Unroutable int

	// History is set when older history was folded into a summary for
	// this call. The caller persists it so the folded turns are not sent
	// again.
	History    models.HistorySummary
	Summarized bool
}

// Orchestrator serves one game session. ProcessInput calls are serialized.
type Orchestrator struct {
	opts     Options
	sem      *semaphore.Weighted
	parser   *parser.Parser
	resolver *resolver.Resolver
	router   *router.Router
	log      *logging.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Params == (models.GenerationParams{}) {
		opts.Params = models.DefaultGenerationParams
	}
	if opts.SummarizeAfter <= 0 {
		opts.SummarizeAfter = 16
	}
	log := logging.OrNop(opts.Log)
	if opts.SessionID != "" {
		log = log.With("session", opts.SessionID)
	}

	o := &Orchestrator{
		opts:   opts,
		sem:    semaphore.NewWeighted(1),
		parser: parser.New(log),
		router: router.New(opts.Executor, log),
		log:    log.Named("orchestrator"),
	}
	o.resolver = resolver.New(opts.Query, passGenerator{o}, log)
	return o
}

// ProcessInput runs the pipeline for gctx.PlayerInput. It only returns an
// error when ctx ends while waiting for a previous call to finish; every
// failure inside the pipeline degrades to a narrative.
func (o *Orchestrator) ProcessInput(ctx context.Context, gctx models.GenerationContext) (Result, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer o.sem.Release(1)

	res := Result{TurnID: uuid.NewString(), Deferred: []requests.Command{}}
	log := o.log.With("turn", res.TurnID)
	defer o.record(ctx, gctx.PlayerInput, &res)

	if verdict := o.gate(ctx, gctx, log); !verdict.Valid {
		res.Rejected = true
		res.Narrative = verdict.Reason
		if strings.TrimSpace(res.Narrative) == "" {
			res.Narrative = DefaultRejection
		}
		log.Info("input rejected", "reason", res.Narrative)
		return res, nil
	}

	gctx = o.summarize(ctx, gctx, &res, log)

	first, method, err := o.pass(ctx, gctx)
	if err != nil {
		res.Failure = ClassifyFailure(err)
		res.Narrative = FailureMessage(res.Failure)
		log.Error("first pass failed", "kind", res.Failure, "error", err)
		return res, nil
	}
	res.Method = method

	out := o.resolve(ctx, gctx, first, &res, log)
	res.Narrative = o.postProcess(ctx, out.Narrative, &res, log)
	o.route(ctx, out.Requests, &res, log)

	if out.TimePassage != "" {
		d, err := requests.ParseTimePassage(out.TimePassage)
		if err != nil {
			log.Debug("ignoring time passage", "value", out.TimePassage, "error", err)
		}
		res.TimePassage = d
	}

	log.Info("turn processed",
		"method", res.Method,
		"second_pass", res.SecondPass,
		"immediate", len(res.Immediate),
		"deferred", len(res.Deferred),
	)
	return res, nil
}

// Reset clears per-session state in every Resettable collaborator.
func (o *Orchestrator) Reset() {
	seen := make(map[Resettable]bool)
	reset := func(v any) {
		r, ok := v.(Resettable)
		if !ok || r == nil || seen[r] {
			return
		}
		seen[r] = true
		r.Reset()
	}
	reset(o.opts.Validator)
	reset(o.opts.Summarizer)
	for _, r := range o.opts.Resettables {
		reset(r)
	}
	o.log.Info("session state reset", "components", len(seen))
}

func (o *Orchestrator) summarize(ctx context.Context, gctx models.GenerationContext, res *Result, log *logging.Logger) models.GenerationContext {
	if o.opts.Summarizer == nil || len(gctx.History) <= o.opts.SummarizeAfter {
		return gctx
	}
	hs, err := contain(func() (models.HistorySummary, error) { return o.opts.Summarizer.Summarize(ctx, gctx) })
	if err != nil {
		log.Warn("history summary failed", "error", err)
		return gctx
	}
	if hs.Folded <= 0 || strings.TrimSpace(hs.Text) == "" {
		return gctx
	}
	res.History = hs
	res.Summarized = true
	log.Debug("history folded into summary", "messages", hs.Folded)
	return gctx.Compacted(hs)
}

// gate fails open: a validator error or panic lets the input through.
func (o *Orchestrator) gate(ctx context.Context, gctx models.GenerationContext, log *logging.Logger) rules.Verdict {
	if o.opts.Validator == nil {
		return rules.Allow
	}
	if router.IsOnboardingInput(gctx.PlayerInput) {
		log.Debug("onboarding input skips the rule gate")
		return rules.Allow
	}
	verdict, err := contain(func() (rules.Verdict, error) { return o.opts.Validator.Validate(ctx, gctx) })
	if err != nil {
		log.Warn("validator failed, allowing input", "error", err)
		return rules.Allow
	}
	return verdict
}

// pass runs one generation and parses it.
func (o *Orchestrator) pass(ctx context.Context, gctx models.GenerationContext) (requests.GenerationOutput, parser.Method, error) {
	if o.opts.Service == nil {
		return requests.GenerationOutput{}, "", fmt.Errorf("no narrative service configured")
	}
	msgs, err := prompt.Build(gctx)
	if err != nil {
		return requests.GenerationOutput{}, "", err
	}
	text, err := contain(func() (string, error) { return o.opts.Service.Generate(ctx, msgs, o.opts.Params) })
	if err != nil {
		return requests.GenerationOutput{}, "", err
	}
	if strings.TrimSpace(text) == "" {
		return requests.GenerationOutput{}, "", engine.ErrEmpty
	}
	parsed := o.parser.ParseDetailed(text)
	return parsed.Output, parsed.Method, nil
}

func (o *Orchestrator) resolve(ctx context.Context, gctx models.GenerationContext, first requests.GenerationOutput, res *Result, log *logging.Logger) requests.GenerationOutput {
	resolution, err := contain(func() (resolver.Resolution, error) {
		return o.resolver.Resolve(ctx, gctx, first), nil
	})
	if err != nil {
		log.Error("data resolution failed", "error", err)
		return first.WithoutDataQueries()
	}
	res.SecondPass = resolution.SecondPass
	return resolution.Output
}

// postProcess keeps the original text when resolution fails outright.
func (o *Orchestrator) postProcess(ctx context.Context, text string, res *Result, log *logging.Logger) string {
	if len(o.opts.Handlers) == 0 && len(embedded.Extract(text)) == 0 {
		return text
	}
	type replaced struct {
		text    string
		results []embedded.Result
	}
	out, err := contain(func() (replaced, error) {
		t, r := embedded.ResolveAndReplace(ctx, text, o.opts.Handlers)
		return replaced{t, r}, nil
	})
	if err != nil {
		log.Error("embedded command processing failed", "error", err)
		return text
	}
	for _, r := range out.results {
		if r.Err != nil {
			log.Warn("embedded command failed", "command", r.Token.Name, "error", r.Err)
		}
	}
	res.Embedded = out.results
	return out.text
}

func (o *Orchestrator) route(ctx context.Context, reqs []requests.Request, res *Result, log *logging.Logger) {
	outcome, err := contain(func() (router.Outcome, error) {
		return o.router.Route(ctx, requests.LowerAll(reqs)), nil
	})
	if err != nil {
		log.Error("routing failed", "error", err)
		return
	}
	for _, d := range outcome.Decisions {
		if d.Class == router.Immediate {
			res.Immediate = append(res.Immediate, d)
		}
	}
	res.Deferred = append(res.Deferred, outcome.Deferred...)
	res.Unroutable = len(outcome.Unrecognized)
}

func (o *Orchestrator) record(ctx context.Context, input string, res *Result) {
	if o.opts.Recorder == nil {
		return
	}
	turn := journal.Turn{
		ID:        res.TurnID,
		Session:   o.opts.SessionID,
		Input:     input,
		Narrative: res.Narrative,
		Method:    string(res.Method),
		Rejected:  res.Rejected,
	}
	for _, d := range res.Immediate {
		turn.Immediate = append(turn.Immediate, d.Command.String())
	}
	for _, c := range res.Deferred {
		turn.Deferred = append(turn.Deferred, c.String())
	}
	if res.Failure != "" {
		turn.Method = "failure:" + string(res.Failure)
	}
	if err := o.opts.Recorder.Record(context.WithoutCancel(ctx), turn); err != nil {
		o.log.Warn("journal write failed", "turn", res.TurnID, "error", err)
	}
}

// passGenerator lets the resolver run the second pass through the same
// prompt, service and parser as the first.
type passGenerator struct{ o *Orchestrator }

func (g passGenerator) Generate(ctx context.Context, gctx models.GenerationContext) (requests.GenerationOutput, error) {
	out, _, err := g.o.pass(ctx, gctx)
	return out, err
}

// contain runs fn and turns a panic into an error.
func contain[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
