package playground

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	pcRe     = regexp.MustCompile(`\bpc=(\d+)`)
	threadRe = regexp.MustCompile(`\bthread (\d+)`)
)

// FormatWarnings turns explorer warnings into a user-facing message.
func FormatWarnings(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exploration finished with %d warning(s).\n", len(warnings))

	for _, w := range warnings {
		msg, hint := classifyAndHint(w)

		fmt.Fprintf(&b, "- %s\n", msg)
		if loc := deriveLocation(w); loc != "" {
			fmt.Fprintf(&b, "  Location: %s\n", loc)
		}
		if hint != "" {
			fmt.Fprintf(&b, "  How to fix: %s\n", hint)
		}
		fmt.Fprintf(&b, "  Details: %s\n", strings.TrimSpace(w))
	}

	return b.String()
}

// FormatViolation renders a contract violation recovered from the
// renaming engine.
func FormatViolation(err error) string {
	var b strings.Builder
	b.WriteString("Exploration aborted: the renaming engine detected an inconsistent program.\n")
	if loc := deriveLocation(err.Error()); loc != "" {
		fmt.Fprintf(&b, "  Location: %s\n", loc)
	}
	fmt.Fprintf(&b, "  Details: %s\n", err)
	return b.String()
}

func deriveLocation(s string) string {
	m := pcRe.FindStringSubmatch(s)
	if len(m) != 2 {
		return ""
	}
	loc := "instruction " + m[1]
	if t := threadRe.FindStringSubmatch(s); len(t) == 2 {
		loc += ", thread " + t[1]
	}
	return loc
}

func classifyAndHint(s string) (msg, hint string) {
	switch {
	case strings.Contains(s, "without an open branch"):
		return "A join was reached with no branch left to merge.",
			"Make sure every join follows a branch on all paths that reach it."
	case strings.Contains(s, "call depth"):
		return "A path was cut because calls nested too deeply.",
			`Raise "maxCallDepth" in the scenario options or bound the recursion with an assume.`
	case strings.Contains(s, "diverged"):
		return "Two joined paths disagree about thread frames; the then side was kept.",
			"Avoid calls, returns and thread switches that are not matched on both sides of a branch."
	case strings.HasPrefix(s, "decl of global"), strings.HasPrefix(s, "dead of global"):
		return "A global was declared or killed; globals live for the whole program.", ""
	}
	return "Explorer warning.", ""
}
