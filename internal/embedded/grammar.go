// Package embedded implements the inline command language used inside
// narrative text: {COMMAND_NAME arg1 key:value key:"quoted value"}.
package embedded

import (
	"regexp"
	"strings"

	"github.com/tatianab/narrator/internal/requests"
)

var tokenPattern = regexp.MustCompile(`\{([A-Z][A-Z0-9]*(?:_[A-Z0-9]+)*)(?:\s+([^{}]*?))?\s*\}`)

// Token is one embedded command found in a text. Start and End are byte
// offsets of the literal token, braces included.
type Token struct {
	Name  string
	Args  string
	Start int
	End   int
}

// Literal returns the token text as it appears in the source.
func (t Token) Literal(text string) string {
	return text[t.Start:t.End]
}

// Command returns the token as a dispatch-ready command.
func (t Token) Command() requests.Command {
	return requests.Command{Name: t.Name, Args: t.Args}
}

// Extract finds every non-overlapping token in input order.
func Extract(text string) []Token {
	idx := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	tokens := make([]Token, 0, len(idx))
	for _, m := range idx {
		tok := Token{
			Name:  text[m[2]:m[3]],
			Start: m[0],
			End:   m[1],
		}
		if m[4] >= 0 {
			tok.Args = strings.TrimSpace(text[m[4]:m[5]])
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Invocation is a tokenized argument list.
type Invocation struct {
	Name       string
	Positional string
	Options    map[string]string
	Raw        []string
}

// Option returns the named option or def when it is absent.
func (inv Invocation) Option(key, def string) string {
	if v, ok := inv.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// Tokenize splits args on whitespace, honouring double quotes. The first
// token is positional when it carries no colon; later key:value tokens fill
// Options. Bare tokens after the first stay visible in Raw only.
func Tokenize(args string) Invocation {
	inv := Invocation{Options: map[string]string{}}
	inv.Raw = splitArgs(args)

	for i, tok := range inv.Raw {
		key, val, ok := strings.Cut(tok, ":")
		if ok && key != "" && !strings.HasPrefix(tok, `"`) {
			inv.Options[key] = unquote(val)
			continue
		}
		if i == 0 {
			inv.Positional = unquote(tok)
		}
	}
	return inv
}

func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
		escape  bool
		started bool
	)
	flush := func() {
		if started {
			out = append(out, cur.String())
		}
		cur.Reset()
		started = false
	}

	for _, r := range s {
		switch {
		case escape:
			cur.WriteRune(r)
			escape = false
		case inQuote && r == '\\':
			cur.WriteRune(r)
			escape = true
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
			started = true
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		inner := s[1 : len(s)-1]
		return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(inner)
	}
	return s
}
