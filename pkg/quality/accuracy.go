package quality

import (
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

var placeholderPattern = regexp.MustCompile(`(?i)^(tbd|todo|n/?a|tba|unknown|xxx|placeholder)$`)

// minSnippetLength is the shortest explicit-provenance snippet that
// counts as a genuine quote rather than a truncated fragment.
const minSnippetLength = 8

// evaluateAccuracy scores dimension 1: placeholder strings, invalid
// date patterns, short snippets, and non-positive page numbers. Each
// violation subtracts uniformly from a perfect score of 1.0.
func evaluateAccuracy(doc []byte, feedback []string) (float64, []string) {
	parsed := gjson.ParseBytes(doc)

	var total, violations int
	var issues []string

	var walk func(value gjson.Result, path string)
	walk = func(value gjson.Result, path string) {
		switch {
		case value.IsObject():
			page := value.Get("page")
			if page.Exists() {
				total++
				if page.Int() <= 0 {
					violations++
					issues = append(issues, fmt.Sprintf("%s.page: non-positive page number", path))
				}
			}
			snippet := value.Get("snippet")
			if snippet.Exists() {
				total++
				if len(snippet.String()) < minSnippetLength {
					violations++
					issues = append(issues, fmt.Sprintf("%s.snippet: below minimum length", path))
				}
			}
			value.ForEach(func(key, v gjson.Result) bool {
				childPath := key.String()
				if path != "" {
					childPath = path + "." + childPath
				}
				walk(v, childPath)
				return true
			})
		case value.IsArray():
			value.ForEach(func(key, v gjson.Result) bool {
				walk(v, fmt.Sprintf("%s[%s]", path, key.String()))
				return true
			})
		case value.Type == gjson.String:
			total++
			if placeholderPattern.MatchString(value.String()) {
				violations++
				issues = append(issues, fmt.Sprintf("%s: placeholder value %q", path, value.String()))
			}
		}
	}
	walk(parsed, "")

	if total == 0 {
		return 1.0, feedback
	}
	score := 1.0 - float64(violations)/float64(total)
	if len(issues) > 0 {
		feedback = append(feedback, formatFeedback("accuracy", issues))
	}
	return score, feedback
}
