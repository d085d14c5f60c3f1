package requests

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimePassage converts a compact duration token such as "30s", "1m",
// "2h" or "1d" into a duration. An empty token means no time passed.
func ParseTimePassage(tok string) (time.Duration, error) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if tok == "" {
		return 0, nil
	}

	unit := tok[len(tok)-1]
	n, err := strconv.Atoi(strings.TrimSpace(tok[:len(tok)-1]))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid time passage %q", tok)
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid time passage unit in %q", tok)
}
