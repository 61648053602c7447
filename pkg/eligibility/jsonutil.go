package eligibility

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON mirrors pkg/interpret and pkg/soa's lenient LLM-response
// unwrapping: trim a markdown fence if present, then slice from the
// first '{' or '[' to the matching last '}' or ']'.
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

func decodeJSONObject(text string) (map[string]any, error) {
	clean, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode LLM JSON object: %w", err)
	}
	return out, nil
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return s
}
