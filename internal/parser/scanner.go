package parser

// span is a half-open byte range [start, end) of a balanced JSON-like
// structure.
type span struct {
	start, end int
}

// Bounds on scanning work per parse: balanced spans returned and opening
// brackets tried.
const (
	maxCandidates = 16
	maxOpeners    = 64
)

// balancedSpans returns balanced {...} / [...] spans in order of their
// opening bracket. Brackets inside double-quoted strings are ignored and
// mismatched closers invalidate the candidate. Scanning is iterative so
// deeply nested input cannot exhaust the stack.
//
// It is safe to iterate bytes because UTF-8 never uses ASCII bytes inside
// multi-byte sequences.
func balancedSpans(s string) []span {
	var spans []span
	next := 0
	for tried := 0; len(spans) < maxCandidates && tried < maxOpeners; tried++ {
		start := indexOpener(s, next)
		if start < 0 {
			break
		}
		if end, ok := matchFrom(s, start); ok {
			spans = append(spans, span{start, end})
			next = end
			continue
		}
		next = start + 1
	}
	return spans
}

func indexOpener(s string, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			return i
		}
	}
	return -1
}

// matchFrom walks from an opening bracket to its matching closer.
func matchFrom(s string, start int) (int, bool) {
	stack := make([]byte, 0, 16)
	inString := false
	escape := false

	for i := start; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != b {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
