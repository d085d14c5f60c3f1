package embedded

import (
	"context"
	"fmt"
	"strings"
)

// HandlerFunc executes one embedded command and returns the text that
// replaces its token.
type HandlerFunc func(ctx context.Context, inv Invocation) (string, error)

// Handler pairs a HandlerFunc with the category used in failure markers,
// e.g. "Item Creation".
type Handler struct {
	Category string
	Fn       HandlerFunc
}

// Table maps command names to handlers.
type Table map[string]Handler

// Result records what happened to one token.
type Result struct {
	Token       Token
	Replacement string
	Err         error
	Known       bool
}

// ResolveAndReplace runs every token in text through table and rebuilds
// the text once from the recorded spans, so identical tokens are each
// replaced exactly once and text outside tokens is never touched.
// Handlers run in input order.
func ResolveAndReplace(ctx context.Context, text string, table Table) (string, []Result) {
	tokens := Extract(text)
	if len(tokens) == 0 {
		return text, nil
	}

	results := make([]Result, 0, len(tokens))
	for _, tok := range tokens {
		results = append(results, resolveOne(ctx, tok, table))
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, res := range results {
		b.WriteString(text[last:res.Token.Start])
		b.WriteString(res.Replacement)
		last = res.Token.End
	}
	b.WriteString(text[last:])
	return b.String(), results
}

func resolveOne(ctx context.Context, tok Token, table Table) (res Result) {
	res.Token = tok

	h, ok := table[tok.Name]
	if !ok || h.Fn == nil {
		res.Replacement = fmt.Sprintf("[Unknown Command: %s]", tok.Name)
		res.Err = fmt.Errorf("unknown command %s", tok.Name)
		return res
	}
	res.Known = true

	category := h.Category
	if category == "" {
		category = categoryFromName(tok.Name)
	}

	defer func() {
		if p := recover(); p != nil {
			res.Replacement = fmt.Sprintf("[%s Error: %v]", category, p)
			res.Err = fmt.Errorf("%s panicked: %v", tok.Name, p)
		}
	}()

	inv := Tokenize(tok.Args)
	inv.Name = tok.Name
	out, err := h.Fn(ctx, inv)
	if err != nil {
		res.Replacement = fmt.Sprintf("[%s Failed: %s]", category, err.Error())
		res.Err = err
		return res
	}
	res.Replacement = out
	return res
}

// categoryFromName turns ITEM_CREATE into "Item Create".
func categoryFromName(name string) string {
	parts := strings.Split(strings.ToLower(name), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
