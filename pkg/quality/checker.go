// Package quality implements the five-dimension extraction quality
// checker: a pure evaluator, run between the two-phase extractor's
// attempts to decide whether to accept, retry, or give up on a module's
// output, plus a deterministic post-processor (Postprocess) that the
// extractor does not call.
package quality

import (
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/provenance"
)

// Pass identifies which extractor pass an evaluation is scoring.
// Pass1 only evaluates accuracy, completeness, and schema adherence;
// provenance is not required until the combined/pass-2 result.
type Pass string

const (
	Pass1    Pass = "pass1"
	Combined Pass = "combined"
)

// Checker evaluates extracted module data against its declared schema
// and the document's provenance/terminology requirements.
type Checker struct {
	thresholds config.QualityThresholds
	weights    config.QualityWeights
	schemas    *SchemaRegistry
	codelists  map[string]provenance.Codelist
}

// NewChecker builds a Checker. schemas resolves module JSON schemas
// (dimension 3); codelists backs the terminology validator (dimension 5).
func NewChecker(thresholds config.QualityThresholds, weights config.QualityWeights, schemas *SchemaRegistry, codelists map[string]provenance.Codelist) *Checker {
	return &Checker{thresholds: thresholds, weights: weights, schemas: schemas, codelists: codelists}
}

// Evaluate runs the dimensions appropriate to pass against data, which
// must validate against the module identified by moduleID's schema.
func (c *Checker) Evaluate(pass Pass, moduleID string, data map[string]any) (models.QualityScore, error) {
	var score models.QualityScore

	raw, err := json.Marshal(data)
	if err != nil {
		return score, fmt.Errorf("marshal module data: %w", err)
	}

	score.Accuracy, score.Feedback = evaluateAccuracy(raw, score.Feedback)
	score.Completeness, score.Feedback = c.evaluateCompleteness(moduleID, data, score.Feedback)
	score.SchemaAdherence, score.SchemaErrors, score.Feedback = c.evaluateSchemaAdherence(moduleID, raw, score.Feedback)

	if pass == Combined {
		score.Provenance, score.Feedback = c.evaluateProvenance(moduleID, raw, score.Feedback)
		score.Terminology, score.Feedback = c.evaluateTerminology(raw, score.Feedback)
	} else {
		// Pass-1 dimensions not yet scored default to 1.0 so they
		// never drag down a composite the caller isn't using yet.
		score.Provenance = 1.0
		score.Terminology = 1.0
	}

	score.Composite = c.weights.Composite(score)
	return score, nil
}

// Thresholds returns the quality thresholds this checker evaluates
// against, so callers can make pass/skip decisions without duplicating
// threshold configuration (e.g. the extractor's pass-2 skip check).
func (c *Checker) Thresholds() config.QualityThresholds {
	return c.thresholds
}

// Passed reports whether score clears every dimension's configured
// threshold for pass.
func (c *Checker) Passed(pass Pass, score models.QualityScore) bool {
	if score.Accuracy < c.thresholds.Accuracy {
		return false
	}
	if score.Completeness < c.thresholds.Completeness {
		return false
	}
	if score.SchemaAdherence < c.thresholds.USDMAdherence {
		return false
	}
	if pass != Combined {
		return true
	}
	if score.Provenance < c.thresholds.Provenance {
		return false
	}
	if score.Terminology < c.thresholds.Terminology {
		return false
	}
	return true
}

// Decide chooses the extractor's next move given the current score,
// the number of retries already spent, and the retry policy.
func (c *Checker) Decide(pass Pass, score models.QualityScore, retriesUsed int, retry config.RetryConfig) models.RetryDecision {
	if c.Passed(pass, score) {
		return models.RetryDecisionAccept
	}
	if retriesUsed >= retry.MaxRetries {
		return models.RetryDecisionGiveUp
	}

	avgIssueScore := averageFailingDimensions(c.thresholds, score)
	if avgIssueScore >= retry.SurgicalScoreFloor && score.SchemaAdherence >= retry.SurgicalSchemaFloor {
		return models.RetryDecisionSurgical
	}
	return models.RetryDecisionFull
}

func averageFailingDimensions(t config.QualityThresholds, s models.QualityScore) float64 {
	type dim struct {
		score, threshold float64
	}
	dims := []dim{
		{s.Accuracy, t.Accuracy},
		{s.Completeness, t.Completeness},
		{s.Provenance, t.Provenance},
		{s.Terminology, t.Terminology},
	}

	var sum float64
	var n int
	for _, d := range dims {
		if d.score < d.threshold {
			sum += d.score
			n++
		}
	}
	if n == 0 {
		return 1.0
	}
	return sum / float64(n)
}
