package config

import "github.com/codeready-toolchain/protocolx/pkg/models"

// QualityThresholds are the per-dimension floors a quality dimension must
// meet to avoid retry. Overridable.
type QualityThresholds struct {
	Accuracy      float64 `yaml:"accuracy" validate:"required,gt=0,lte=1"`
	Completeness  float64 `yaml:"completeness" validate:"required,gt=0,lte=1"`
	USDMAdherence float64 `yaml:"usdm_adherence" validate:"required,gt=0,lte=1"`
	Provenance    float64 `yaml:"provenance" validate:"required,gt=0,lte=1"`
	Terminology   float64 `yaml:"terminology" validate:"required,gt=0,lte=1"`
}

// DefaultQualityThresholds returns the built-in thresholds.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		Accuracy:      0.95,
		Completeness:  0.90,
		USDMAdherence: 1.0,
		Provenance:    0.95,
		Terminology:   0.90,
	}
}

// QualityWeights are the fixed weights used to compute the overall quality
// score.
type QualityWeights struct {
	Accuracy      float64
	Completeness  float64
	USDMAdherence float64
	Provenance    float64
	Terminology   float64
}

// Composite computes the weighted composite of a QualityScore's five
// dimensions using w. SchemaAdherence is weighted by w.USDMAdherence.
func (w QualityWeights) Composite(s models.QualityScore) float64 {
	return s.Accuracy*w.Accuracy +
		s.Completeness*w.Completeness +
		s.SchemaAdherence*w.USDMAdherence +
		s.Provenance*w.Provenance +
		s.Terminology*w.Terminology
}

// DefaultQualityWeights returns the built-in weights.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Accuracy:      0.25,
		Completeness:  0.20,
		USDMAdherence: 0.20,
		Provenance:    0.20,
		Terminology:   0.15,
	}
}

// RetryConfig bounds the quality-directed retry loop.
type RetryConfig struct {
	// MaxRetries is the default per-pass retry bound.
	MaxRetries int `yaml:"max_retries" validate:"required,min=0"`

	// SurgicalScoreFloor is the minimum average score across dimensions
	// with issues required to attempt a surgical retry.
	SurgicalScoreFloor float64 `yaml:"surgical_score_floor"`

	// SurgicalSchemaFloor is the minimum schema-adherence score required
	// to attempt a surgical retry.
	SurgicalSchemaFloor float64 `yaml:"surgical_schema_floor"`

	// RetryBackoff is the sleep between retry attempts.
	RetryBackoffMillis int `yaml:"retry_backoff_millis"`
}

// DefaultRetryConfig returns the built-in retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          3,
		SurgicalScoreFloor:  0.70,
		SurgicalSchemaFloor: 0.50,
		RetryBackoffMillis:  250,
	}
}
