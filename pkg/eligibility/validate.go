package eligibility

import "strings"

// StageValidation is one funnel stage's classification outcome against
// a job's extracted criteria.
type StageValidation struct {
	Stage          int      `json:"stage"`
	Name           string   `json:"name"`
	CriteriaCount  int      `json:"criteria_count"`
	CriterionTexts []string `json:"criterion_texts,omitempty"`
}

// stageKeywords is the deterministic classification rule set: the
// first stage whose keyword set matches a criterion's text wins,
// falling back to "Other Requirements" when none do.
var stageKeywords = map[string][]string{
	"Disease Indication":      {"diagnosis", "diagnosed", "histolog", "cancer", "tumor", "disease"},
	"Demographics":            {"age", "years old", "male", "female", "sex", "gender"},
	"Organ Function":          {"renal", "hepatic", "cardiac", "liver", "kidney", "organ function", "ejection fraction"},
	"Treatment History":       {"prior therapy", "previously treated", "prior treatment", "naive", "relapsed", "refractory"},
	"Comorbidities":           {"comorbid", "concurrent illness", "autoimmune", "infection"},
	"Lab Values":              {"laboratory", "lab value", "hemoglobin", "platelet", "creatinine", "bilirubin"},
	"Concomitant Medications": {"concomitant medication", "prohibited medication", "washout"},
}

// ValidateCriteria classifies every extracted criterion into one of
// DefaultFunnelStages by keyword match, producing one StageValidation
// per stage in stage order.
func ValidateCriteria(doc map[string]any) []StageValidation {
	criteria, _ := doc["criteria"].([]any)

	byStage := make(map[int][]string, len(DefaultFunnelStages))
	for _, c := range criteria {
		m, _ := c.(map[string]any)
		text, _ := m["text"].(string)
		byStage[classify(text)] = append(byStage[classify(text)], text)
	}

	out := make([]StageValidation, 0, len(DefaultFunnelStages))
	for _, stage := range DefaultFunnelStages {
		texts := byStage[stage.Number]
		out = append(out, StageValidation{
			Stage:          stage.Number,
			Name:           stage.Name,
			CriteriaCount:  len(texts),
			CriterionTexts: texts,
		})
	}
	return out
}

func classify(text string) int {
	lower := strings.ToLower(text)
	for _, stage := range DefaultFunnelStages {
		keywords, ok := stageKeywords[stage.Name]
		if !ok {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return stage.Number
			}
		}
	}
	return 8 // Other Requirements
}
