// Package tags implements the fuzzy tag matching used by search, filter chips
// and the map view.
package tags

import (
	"strings"
	"unicode/utf8"
)

// MaxPerPost is the number of tags a post may carry.
const MaxPerPost = 3

// Normalize lower-cases tag and collapses a simple plural: a trailing "s" is
// dropped when the word is longer than three characters, so "Events" and
// "event" both become "event" while "bus" stays "bus".
func Normalize(tag string) string {
	n := strings.ToLower(tag)
	if utf8.RuneCountInString(n) > 3 && strings.HasSuffix(n, "s") {
		n = strings.TrimSuffix(n, "s")
	}
	return n
}

// Match reports whether a and b refer to the same tag. Either normalized form
// may contain the other.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// MatchAny reports whether any of candidates matches query.
func MatchAny(candidates []string, query string) bool {
	for _, c := range candidates {
		if Match(c, query) {
			return true
		}
	}
	return false
}

// Clean trims whitespace, drops empty entries and case-insensitive duplicates,
// keeping the first spelling seen.
func Clean(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
