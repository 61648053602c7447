package config

// ConfidenceBands partitions [0,1] into auto-apply / review / reject, used
// by every LLM decision in the interpretation pipeline.
type ConfidenceBands struct {
	AutoApplyFloor float64 `yaml:"auto_apply_floor"` // >= this: auto-apply
	ReviewFloor    float64 `yaml:"review_floor"`      // >= this and < AutoApplyFloor: apply but flag for review
}

// DefaultConfidenceBands returns the default bands: >=0.90 auto,
// 0.70-0.90 review, <0.70 reject.
func DefaultConfidenceBands() ConfidenceBands {
	return ConfidenceBands{AutoApplyFloor: 0.90, ReviewFloor: 0.70}
}

// Decision classifies a confidence value per ConfidenceBands.
type Decision string

const (
	DecisionAutoApply Decision = "auto_apply"
	DecisionReview    Decision = "review"
	DecisionReject    Decision = "reject"
)

// Classify returns the decision band for a confidence value.
func (b ConfidenceBands) Classify(confidence float64) Decision {
	switch {
	case confidence >= b.AutoApplyFloor:
		return DecisionAutoApply
	case confidence >= b.ReviewFloor:
		return DecisionReview
	default:
		return DecisionReject
	}
}

// SpecimenConfidenceBands are the stage-5-specific bands (auto >=0.90,
// review 0.70-0.90, reject <0.70) — numerically
// identical to DefaultConfidenceBands but named separately because a
// deployment may want to tune specimen enrichment independently of the
// system-wide bands.
func SpecimenConfidenceBands() ConfidenceBands {
	return ConfidenceBands{AutoApplyFloor: 0.90, ReviewFloor: 0.70}
}

// InterpretConfig configures the 12-stage interpretation pipeline.
type InterpretConfig struct {
	// Bands is the default confidence classification for LLM decisions.
	Bands ConfidenceBands `yaml:"confidence_bands,omitempty"`

	// LLMChain is the fallback model chain used by every stage that calls
	// an LLM.
	LLMChain LLMFallbackChain `yaml:"llm_chain"`

	// DomainCategorizationCacheDir is the on-disk cache directory for
	// stage 1's activity-name → domain-code memo.
	DomainCategorizationCacheDir string `yaml:"domain_categorization_cache_dir,omitempty"`

	// EnableAgentDocumentation toggles the combiner's agent-documentation
	// catalog.
	EnableAgentDocumentation bool `yaml:"enable_agent_documentation"`

	// MaxBatchSize bounds how many homogeneous items one batched LLM call
	// covers.
	MaxBatchSize int `yaml:"max_batch_size,omitempty"`
}

// DefaultInterpretConfig returns built-in interpretation-pipeline defaults.
func DefaultInterpretConfig() *InterpretConfig {
	return &InterpretConfig{
		Bands:                        DefaultConfidenceBands(),
		EnableAgentDocumentation:     true,
		MaxBatchSize:                 25,
		DomainCategorizationCacheDir: "./data/cache/domain-categorization",
	}
}
