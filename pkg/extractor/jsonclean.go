package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// objectPattern is the last-resort extraction: the span from the first
// `{` to the last `}` in the raw text, used when the model wraps valid JSON in
// prose the fence strip didn't catch.
var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseJSONLenient parses raw as a JSON object, tolerating markdown code
// fences around it and, failing that, extracting the first brace-delimited
// span in the text.
func parseJSONLenient(raw string) (map[string]any, error) {
	candidates := []string{raw}

	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := objectPattern.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, c := range candidates {
		var out map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(c)), &out); err == nil {
			return out, nil
		} else {
			lastErr = err
		}
	}
	return nil, fmt.Errorf("no valid JSON object found in response: %w", lastErr)
}
