package parser

import (
	"regexp"
	"strings"
)

const fence = "```"

// stripFence returns the content of the first fenced block in s, with the
// language tag removed, and the prose preceding the fence. An unterminated
// fence runs to the end of s.
func stripFence(s string) (inner, prefix string, ok bool) {
	spans := balancedSpans(s)
	open := indexFence(s, 0, spans)
	if open < 0 {
		return "", "", false
	}
	prefix = strings.TrimSpace(s[:open])

	// Skip a language tag such as "json" or "JSON".
	body := open + len(fence)
	for body < len(s) && isTagByte(s[body]) {
		body++
	}

	rest := s[body:]
	if end := indexFence(s, body, spans); end >= 0 {
		rest = s[body:end]
	}
	return strings.TrimSpace(rest), prefix, true
}

// indexFence returns the first fence at or after from that is not part of
// a balanced structure, so backticks quoted inside a JSON string are left
// alone.
func indexFence(s string, from int, spans []span) int {
	for from < len(s) {
		i := strings.Index(s[from:], fence)
		if i < 0 {
			return -1
		}
		i += from
		if !inSpan(i, spans) {
			return i
		}
		from = i + len(fence)
	}
	return -1
}

func inSpan(i int, spans []span) bool {
	for _, sp := range spans {
		if i > sp.start && i < sp.end {
			return true
		}
	}
	return false
}

func isTagByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

var (
	trailingComma   = regexp.MustCompile(`,\s*([}\]])`)
	singleQuotedKey = regexp.MustCompile(`'[^'\n]*'\s*:`)
	singleQuoted    = regexp.MustCompile(`'([^'"\\\n]*)'`)
	bareKey         = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

	smartQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"‘", "'", "’", "'",
	)
)

// repairCandidates returns best-effort fixes for a near-valid payload,
// least invasive first: smart quotes, trailing commas and raw control
// characters inside strings; then single-quoted strings and unquoted keys.
// Candidates identical to s or to an earlier candidate are omitted, and
// any of them may still be invalid.
func repairCandidates(s string) []string {
	gentle := smartQuotes.Replace(s)
	gentle = trailingComma.ReplaceAllString(gentle, "$1")
	gentle = escapeControlInStrings(gentle)

	aggressive := gentle
	if singleQuotedKey.MatchString(aggressive) {
		aggressive = escapeControlInStrings(singleQuoted.ReplaceAllString(aggressive, `"$1"`))
	}
	aggressive = bareKey.ReplaceAllString(aggressive, `$1"$2":`)

	var out []string
	for _, c := range []string{gentle, aggressive} {
		if c != s && (len(out) == 0 || out[len(out)-1] != c) {
			out = append(out, c)
		}
	}
	return out
}

// escapeControlInStrings escapes literal newlines, carriage returns and
// tabs that appear inside double-quoted strings.
func escapeControlInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escape {
			escape = false
			b.WriteByte(c)
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			case '\n':
				b.WriteString(`\n`)
				continue
			case '\r':
				b.WriteString(`\r`)
				continue
			case '\t':
				b.WriteString(`\t`)
				continue
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}
