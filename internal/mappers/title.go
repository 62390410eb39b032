package mappers

import (
	"regexp"
	"strings"
)

// titleShortFloor is the load-bearing 10-character minimum for substring
// matching: it prevents "Fix bug" from matching any longer title.
const titleShortFloor = 10

// bracketPrefixRe strips the known leading bracket-tag prefixes:
// "[P0]..[P4]", "[PERF*]", "[TIER n]", "[BUG]", "[FIXED]",
// "[ACTION]", "[EPIC]", "[WIP]". It is applied repeatedly so multiple
// leading tags (e.g. "[P1][BUG] title") are all stripped.
var bracketPrefixRe = regexp.MustCompile(`^\[(?:P[0-4]|PERF[^\]]*|TIER\s*\d+|BUG|FIXED|ACTION|EPIC|WIP)\]\s*`)

// NormalizeTitle lowercases, trims, and strips known leading bracket
// tags, the form used for Beads<->Huly title matching.
func NormalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	for {
		stripped := bracketPrefixRe.ReplaceAllString(t, "")
		if stripped == t {
			break
		}
		t = strings.TrimSpace(stripped)
	}
	return strings.ToLower(t)
}

// TitlesMatch reports a cross-system title match: normalized equality,
// OR both normalized lengths exceed the 10-character floor AND one
// contains the other. Callers that must not run the substring tier pass
// allowSubstring=false for equality-only matching.
func TitlesMatch(a, b string, allowSubstring bool) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == nb {
		return true
	}
	if !allowSubstring {
		return false
	}
	if len(na) <= titleShortFloor || len(nb) <= titleShortFloor {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
