package interpret

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON tolerates the common ways an LLM wraps a JSON payload in
// prose or a markdown fence: it trims a ```json fence if present, then
// slices from the first '{' or '[' to the matching last '}' or ']'.
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON object or array found in LLM response")
	}

	open := trimmed[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(trimmed, closer)
	if end < start {
		return "", fmt.Errorf("unterminated JSON %c...%c in LLM response", open, closer)
	}
	return trimmed[start : end+1], nil
}

// decodeJSONArray extracts and unmarshals a JSON array of objects from
// a raw LLM completion.
func decodeJSONArray(text string) ([]map[string]any, error) {
	clean, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode LLM JSON array: %w", err)
	}
	return out, nil
}
