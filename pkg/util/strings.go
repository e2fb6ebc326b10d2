package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses s or returns def when empty or invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// SplitSymbols splits a comma list into trimmed, upper-cased, de-duplicated
// tickers, keeping first-seen order and at most max entries (max <= 0: no cap).
func SplitSymbols(s string, max int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		sym := strings.ToUpper(strings.TrimSpace(part))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
