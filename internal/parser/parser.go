// Package parser turns raw narrative-service text into a GenerationOutput.
// Parsing is total: every input, including empty or garbage text, yields a
// valid output, degrading to "the whole text is narrative" when no usable
// structure is found.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/requests"
)

// PlaceholderNarrative is used when a structured response carries requests
// but no narrative text.
const PlaceholderNarrative = "Action processed."

// Method records which layer of the parser produced the output.
type Method string

const (
	MethodJSON      Method = "json"
	MethodFenced    Method = "json_fenced"
	MethodExtracted Method = "json_extracted"
	MethodRepaired  Method = "json_repaired"
	MethodFallback  Method = "fallback"
)

// Result is the parse output plus metadata for logging and tests.
type Result struct {
	Output   requests.GenerationOutput
	Method   Method
	Dropped  int
	Warnings []string
}

type Parser struct {
	log *logging.Logger
}

func New(log *logging.Logger) *Parser {
	return &Parser{log: logging.OrNop(log).Named("parser")}
}

// Parse returns the generation output for raw. It never fails.
func (p *Parser) Parse(raw string) requests.GenerationOutput {
	return p.ParseDetailed(raw).Output
}

// ParseDetailed is Parse with the parse metadata attached.
func (p *Parser) ParseDetailed(raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("parser panic, falling back to plain narrative", "panic", r)
			res = fallback(raw, fmt.Sprintf("recovered panic: %v", r))
		}
	}()

	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Output: requests.NewOutput("", nil), Method: MethodFallback}
	}

	type attempt struct {
		body   string
		prefix string
		fenced bool
	}
	attempts := []attempt{{body: text}}
	if inner, prefix, ok := stripFence(text); ok {
		attempts = []attempt{{body: inner, prefix: prefix, fenced: true}, {body: text}}
	}

	structured := false
	for _, a := range attempts {
		for _, sp := range balancedSpans(a.body) {
			structured = true
			prefix := joinProse(a.prefix, a.body[:sp.start])
			whole := strings.TrimSpace(a.body[:sp.start]) == "" && strings.TrimSpace(a.body[sp.end:]) == ""

			out, r, ok := p.decodeSpan(a.body[sp.start:sp.end], prefix, whole)
			if !ok {
				continue
			}
			switch {
			case r.Method == MethodRepaired:
			case a.fenced:
				r.Method = MethodFenced
			case !whole || a.prefix != "":
				r.Method = MethodExtracted
			default:
				r.Method = MethodJSON
			}
			r.Output = out
			p.log.Debug("parsed generation output",
				"method", r.Method,
				"requests", len(out.Requests),
				"dropped", r.Dropped,
			)
			return r
		}
	}

	res = fallback(raw, "no decodable structure")
	if structured {
		p.log.Warn("structured decode failed, treating response as narrative", "length", len(raw))
	}
	return res
}

func fallback(raw, warning string) Result {
	return Result{
		Output:   requests.NewOutput(strings.TrimSpace(raw), nil),
		Method:   MethodFallback,
		Warnings: []string{warning},
	}
}

// decodeSpan decodes one balanced span, trying a repaired copy when the
// strict decode fails. whole reports whether the span is the entire body.
func (p *Parser) decodeSpan(body, prefix string, whole bool) (requests.GenerationOutput, Result, bool) {
	var res Result

	out, err := p.build(body, prefix, whole, &res)
	if err == nil {
		return out, res, true
	}

	for _, repaired := range repairCandidates(body) {
		res = Result{}
		out, err = p.build(repaired, prefix, whole, &res)
		if err != nil {
			continue
		}
		res.Method = MethodRepaired
		res.Warnings = append(res.Warnings, "decoded after quote repair")
		return out, res, true
	}
	return requests.GenerationOutput{}, res, false
}

var errNotOutput = errors.New("structure does not look like generation output")

func (p *Parser) build(body, prefix string, whole bool, res *Result) (requests.GenerationOutput, error) {
	if body == "" {
		return requests.GenerationOutput{}, errNotOutput
	}

	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return requests.GenerationOutput{}, err
		}
		if !whole && !containsObject(items) {
			return requests.GenerationOutput{}, errNotOutput
		}
		out := requests.NewOutput(orPlaceholder(prefix), p.filter(items, res))
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return requests.GenerationOutput{}, err
	}

	_, hasNarrative := obj["narrative"]
	_, hasRequests := obj["requests"]
	_, hasAction := obj["action"]
	switch {
	case hasNarrative || hasRequests:
	case hasAction:
		// A single bare request object.
		return requests.NewOutput(orPlaceholder(prefix), p.filter([]json.RawMessage{json.RawMessage(body)}, res)), nil
	case whole:
	default:
		return requests.GenerationOutput{}, errNotOutput
	}

	narrative := strings.TrimSpace(stringField(obj["narrative"]))
	if narrative == "" {
		narrative = orPlaceholder(prefix)
	}

	out := requests.NewOutput(narrative, p.filter(requestItems(obj["requests"]), res))
	out.TimePassage = strings.TrimSpace(stringField(obj["time_passage"]))
	return out, nil
}

// filter decodes each raw request, dropping unrecognized or malformed
// entries individually.
func (p *Parser) filter(items []json.RawMessage, res *Result) []requests.Request {
	kept := make([]requests.Request, 0, len(items))
	for _, item := range items {
		req, err := requests.Decode(item)
		if err != nil {
			res.Dropped++
			if errors.Is(err, requests.ErrUnknownAction) {
				p.log.Debug("dropping unrecognized request", "error", err)
			} else {
				p.log.Warn("dropping malformed request", "error", err)
			}
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		kept = append(kept, req)
	}
	return kept
}

func requestItems(raw json.RawMessage) []json.RawMessage {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			return items
		}
	case '{':
		return []json.RawMessage{raw}
	}
	return nil
}

func containsObject(items []json.RawMessage) bool {
	for _, it := range items {
		if s := strings.TrimSpace(string(it)); strings.HasPrefix(s, "{") {
			return true
		}
	}
	return false
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func orPlaceholder(prefix string) string {
	if prefix != "" {
		return prefix
	}
	return PlaceholderNarrative
}

func joinProse(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
