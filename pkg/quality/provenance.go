package quality

import (
	"fmt"

	"github.com/codeready-toolchain/protocolx/pkg/provenance"
)

// moduleExemptFields holds per-module exemptions from provenance
// coverage, layered on top of provenance.Coverage's built-in exempt set.
var moduleExemptFields = map[string][]string{}

// evaluateProvenance scores dimension 4 by delegating to
// pkg/provenance's coverage walk.
func (c *Checker) evaluateProvenance(moduleID string, raw []byte, feedback []string) (float64, []string) {
	result := provenance.Coverage(raw, moduleExemptFields[moduleID])
	ratio := result.Ratio()
	if ratio < 1.0 {
		feedback = append(feedback, formatFeedback("provenance", []string{
			fmt.Sprintf("%d/%d eligible fields lack provenance", result.Eligible-result.Covered, result.Eligible),
		}))
	}
	return ratio, feedback
}

// evaluateTerminology scores dimension 5 by delegating to
// pkg/provenance's terminology validator. A traversal failure scores
// 0.0 with a single catch-all issue, per the checker's error-handling
// contract — it is treated as a hard signal, unlike a schema load
// failure, because it means the document itself could not be parsed.
func (c *Checker) evaluateTerminology(raw []byte, feedback []string) (float64, []string) {
	validator := provenance.NewValidator(c.codelists)
	score, issues, err := validator.Validate(raw)
	if err != nil {
		return 0.0, append(feedback, formatFeedback("terminology", []string{err.Error()}))
	}
	if len(issues) > 0 {
		msgs := make([]string, len(issues))
		for i, iss := range issues {
			msgs[i] = fmt.Sprintf("%s: code %q does not resolve against %q", iss.Path, iss.Code, iss.Codelist)
		}
		feedback = append(feedback, formatFeedback("terminology", msgs))
	}
	return score, feedback
}
