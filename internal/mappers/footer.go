package mappers

import (
	"fmt"
	"regexp"
	"strings"
)

// hulyIssueLineRe matches a "Huly Issue: <identifier>" line.
var hulyIssueLineRe = regexp.MustCompile(`(?m)^Huly Issue:\s*(PROJECT-\d+|[A-Z][A-Z0-9]*-\d+)\s*$`)

// parentLineRe matches a "Parent: <identifier>" line, same tolerance rules.
var parentLineRe = regexp.MustCompile(`(?m)^Parent:\s*([A-Z][A-Z0-9]*-\d+)\s*$`)

// RenderFooter appends the bit-exact Vibe/Beads footer:
// "\n\n---\nHuly Issue: <identifier>" with an optional following
// "Parent: <identifier>" line. Both directions of the footer are rendered
// by this single function so the two external representations (Vibe task
// description, Beads issue description) never drift apart.
func RenderFooter(body, identifier, parentIdentifier string) string {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Huly Issue: %s", identifier)
	if parentIdentifier != "" {
		fmt.Fprintf(&b, "\nParent: %s", parentIdentifier)
	}
	return b.String()
}

// ExtractHulyIdentifier extracts the identifier token from a
// "Huly Issue: <id>" line (case-sensitive). Returns "" if no such line
// is present.
func ExtractHulyIdentifier(description string) string {
	m := hulyIssueLineRe.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractParentIdentifier extracts the identifier following a "Parent:"
// line, mirroring ExtractHulyIdentifier.
func ExtractParentIdentifier(description string) string {
	m := parentLineRe.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripFooter removes the trailing "\n\n---\nHuly Issue: ..." block
// (and any following Parent: line) so that the remaining body can be
// compared for a genuine content change.
func StripFooter(description string) string {
	idx := strings.Index(description, "\n\n---\n")
	if idx == -1 {
		return description
	}
	return description[:idx]
}
