package models

// QualityScore holds the five-dimension evaluation of one module
// extraction attempt, before it is persisted onto a ModuleResult.
type QualityScore struct {
	Accuracy        float64  `json:"accuracy"`
	Completeness    float64  `json:"completeness"`
	SchemaAdherence float64  `json:"schema_adherence"`
	Provenance      float64  `json:"provenance"`
	Terminology     float64  `json:"terminology"`
	Composite       float64  `json:"composite"`
	Feedback        []string `json:"feedback,omitempty"`
	SchemaErrors    []string `json:"schema_errors,omitempty"`
}

// RetryDecision reports what the extractor should do next after a
// quality evaluation: stop, retry the whole module, or retry only the
// fields the quality checker flagged (a "surgical" retry).
type RetryDecision string

const (
	RetryDecisionAccept   RetryDecision = "accept"
	RetryDecisionFull     RetryDecision = "retry_full"
	RetryDecisionSurgical RetryDecision = "retry_surgical"
	RetryDecisionGiveUp   RetryDecision = "give_up"
)
