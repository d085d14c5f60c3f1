// Package resolver handles requests for more game data: it fetches the
// requested data, injects it into the generation context and runs exactly
// one more narrative pass.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/parser"
	"github.com/tatianab/narrator/internal/requests"
)

// StateQuerier is the read-only view of the game used to answer data
// queries. Each data type maps to exactly one call.
type StateQuerier interface {
	Inventory(ctx context.Context) (models.Inventory, error)
	Stats(ctx context.Context) (models.CharacterSheet, error)
	Quests(ctx context.Context) ([]models.Quest, error)
	Location(ctx context.Context) (models.Location, error)
}

// Generator runs one parsed narrative pass.
type Generator interface {
	Generate(ctx context.Context, gctx models.GenerationContext) (requests.GenerationOutput, error)
}

// ErrorKey is the key of the bucket recorded for a failed fetch.
const ErrorKey = "error"

// Fetched holds per-type fetch results. A failed fetch is stored as
// map[string]any{"error": message}.
type Fetched map[requests.DataType]any

// Err returns the recorded error message for a data type, if any.
func (f Fetched) Err(dt requests.DataType) string {
	if bucket, ok := f[dt].(map[string]any); ok {
		if msg, ok := bucket[ErrorKey].(string); ok {
			return msg
		}
	}
	return ""
}

// Additional converts the results into generation-context entries keyed
// by data type.
func (f Fetched) Additional() map[string]any {
	out := make(map[string]any, len(f))
	for dt, v := range f {
		out[string(dt)] = v
	}
	return out
}

// Resolution is the result of the data-resolution pass.
type Resolution struct {
	Output     requests.GenerationOutput
	Fetched    Fetched
	SecondPass bool
	Summarized bool
}

type Resolver struct {
	query StateQuerier
	gen   Generator
	log   *logging.Logger
}

func New(query StateQuerier, gen Generator, log *logging.Logger) *Resolver {
	return &Resolver{query: query, gen: gen, log: logging.OrNop(log).Named("resolver")}
}

// Resolve inspects the first-pass output. Without known data queries it is
// returned unchanged and no generation happens. Otherwise the data is
// fetched, merged into a copy of gctx and exactly one second pass runs;
// data queries emitted by that pass are dropped.
func (r *Resolver) Resolve(ctx context.Context, gctx models.GenerationContext, first requests.GenerationOutput) Resolution {
	queries := first.DataQueries()
	if len(queries) == 0 {
		return Resolution{Output: first}
	}

	fetched := r.Fetch(ctx, queries)
	augmented := gctx.WithAdditional(fetched.Additional())

	res := Resolution{Fetched: fetched, SecondPass: true}
	second, err := r.generate(ctx, augmented)
	if err != nil {
		r.log.Warn("second pass failed", "error", err, "data_types", len(fetched))
		res.Output = first.WithoutDataQueries()
		res.Output.Narrative = ""
	} else {
		if n := len(second.Requests) - len(second.WithoutDataQueries().Requests); n > 0 {
			r.log.Debug("dropping data queries from second pass", "count", n)
		}
		res.Output = merge(first.WithoutDataQueries(), second.WithoutDataQueries())
	}

	if isEmptyNarrative(res.Output.Narrative) {
		summary, serr := Summarize(fetched)
		if serr != nil {
			r.log.Error("summary template failed", "error", serr)
		}
		if summary != "" {
			res.Output.Narrative = summary
			res.Summarized = true
		} else if err != nil {
			res.Output.Narrative = first.Narrative
		}
	}
	return res
}

func (r *Resolver) generate(ctx context.Context, gctx models.GenerationContext) (out requests.GenerationOutput, err error) {
	if r.gen == nil {
		return out, fmt.Errorf("no generator configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("generator panicked: %v", p)
		}
	}()
	return r.gen.Generate(ctx, gctx)
}

// Fetch runs one query per distinct data type. A failing query records an
// error bucket and does not stop the others.
func (r *Resolver) Fetch(ctx context.Context, queries []requests.DataQuery) Fetched {
	fetched := make(Fetched, len(queries))
	for _, q := range queries {
		if _, done := fetched[q.DataType]; done {
			continue
		}
		v, err := r.fetchOne(ctx, q.DataType)
		if err != nil {
			r.log.Warn("data query failed", "data_type", q.DataType, "error", err)
			fetched[q.DataType] = map[string]any{ErrorKey: err.Error()}
			continue
		}
		fetched[q.DataType] = v
	}
	return fetched
}

func (r *Resolver) fetchOne(ctx context.Context, dt requests.DataType) (v any, err error) {
	if r.query == nil {
		return nil, fmt.Errorf("no state querier configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s query panicked: %v", dt, p)
		}
	}()

	switch dt {
	case requests.DataInventory:
		return r.query.Inventory(ctx)
	case requests.DataStats:
		return r.query.Stats(ctx)
	case requests.DataQuests:
		return r.query.Quests(ctx)
	case requests.DataLocation:
		return r.query.Location(ctx)
	}
	return nil, fmt.Errorf("unknown data type %q", dt)
}

// merge combines first-pass requests with the second pass's output. The
// second pass supplies narrative and time; requests it repeats from the
// first pass are kept once.
func merge(first, second requests.GenerationOutput) requests.GenerationOutput {
	out := requests.NewOutput(second.Narrative, nil)
	out.TimePassage = second.TimePassage
	if out.TimePassage == "" {
		out.TimePassage = first.TimePassage
	}

	seen := make(map[string]bool)
	for _, group := range [][]requests.Request{first.Requests, second.Requests} {
		for _, req := range group {
			key := requestKey(req)
			if seen[key] {
				continue
			}
			seen[key] = true
			out.Requests = append(out.Requests, req)
		}
	}
	return out
}

func requestKey(req requests.Request) string {
	var b strings.Builder
	for _, c := range req.Lower() {
		b.WriteString(c.String())
	}
	return b.String()
}

func isEmptyNarrative(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == parser.PlaceholderNarrative
}
