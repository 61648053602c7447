package quality

import (
	"fmt"
)

// evaluateCompleteness scores dimension 2: every field named in the
// module's schema `required` array must be non-null and non-empty.
func (c *Checker) evaluateCompleteness(moduleID string, data map[string]any, feedback []string) (float64, []string) {
	required, ok := c.schemas.Required(moduleID)
	if !ok || len(required) == 0 {
		return 1.0, feedback
	}

	var missing []string
	for _, field := range required {
		v, present := data[field]
		if !present || isEmptyValue(v) {
			missing = append(missing, field)
		}
	}

	score := 1.0 - float64(len(missing))/float64(len(required))
	if len(missing) > 0 {
		issues := make([]string, len(missing))
		for i, f := range missing {
			issues[i] = fmt.Sprintf("%s: missing or empty required field", f)
		}
		feedback = append(feedback, formatFeedback("completeness", issues))
	}
	return score, feedback
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
