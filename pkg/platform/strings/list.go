// Package strings provides string helpers shared by configuration and input parsing.
package strings

import (
	"strings"
)

// SplitList splits s on sep and returns the trimmed, non-empty parts with
// duplicates removed. The first occurrence keeps its position. An empty input
// yields nil.
func SplitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	seen := make(map[string]struct{}, len(parts))
	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
