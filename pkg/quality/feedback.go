package quality

import (
	"fmt"
	"strings"
)

// maxFeedbackIssues bounds how many issues per dimension are folded
// into the retry prompt, so a module with hundreds of violations
// doesn't blow the prompt budget.
const maxFeedbackIssues = 12

// formatFeedback renders a bounded textual digest for one failing
// dimension, suitable for concatenation to a retry prompt.
func formatFeedback(dimension string, issues []string) string {
	if len(issues) > maxFeedbackIssues {
		issues = issues[:maxFeedbackIssues]
		issues = append(issues, fmt.Sprintf("... and more %s issues truncated", dimension))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d issue(s):\n", dimension, len(issues))
	for _, issue := range issues {
		sb.WriteString("  - ")
		sb.WriteString(issue)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FailingTopLevelFields inspects feedback paths and returns the set of
// top-level field names implicated, for the extractor's surgical
// retry prompt (which asks the LLM to return only these fields).
func FailingTopLevelFields(data map[string]any, issuePaths []string) []string {
	seen := map[string]bool{}
	var fields []string
	for _, p := range issuePaths {
		field := p
		if idx := strings.IndexAny(p, ".["); idx >= 0 {
			field = p[:idx]
		}
		if field == "" || seen[field] {
			continue
		}
		if _, ok := data[field]; !ok {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	return fields
}
