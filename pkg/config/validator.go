package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Order: queue → quality/retry → LLM providers → modules,
// so dependents are validated after the things they reference.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateQuality(); err != nil {
		return fmt.Errorf("quality validation failed: %w", err)
	}
	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}
	if err := v.validateModules(); err != nil {
		return fmt.Errorf("module validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return NewValidationError("queue", "default", "", ErrMissingRequiredField)
	}
	if q.WorkerCount < 1 {
		return NewValidationError("queue", "default", "worker_count", ErrInvalidValue)
	}
	if q.MaxConcurrentJobs < 1 {
		return NewValidationError("queue", "default", "max_concurrent_jobs", ErrInvalidValue)
	}
	if q.PollInterval <= 0 {
		return NewValidationError("queue", "default", "poll_interval", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateQuality() error {
	thr := v.cfg.Defaults.Quality
	for name, val := range map[string]float64{
		"accuracy":       thr.Accuracy,
		"completeness":   thr.Completeness,
		"usdm_adherence": thr.USDMAdherence,
		"provenance":     thr.Provenance,
		"terminology":    thr.Terminology,
	} {
		if val <= 0 || val > 1 {
			return NewValidationError("quality_thresholds", "default", name, ErrInvalidValue)
		}
	}
	if v.cfg.Defaults.Retry.MaxRetries < 0 {
		return NewValidationError("retry", "default", "max_retries", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateModules() error {
	for id, m := range v.cfg.ModuleRegistry.GetAll() {
		if m.InstanceType == "" {
			return NewValidationError("module", id, "instance_type", ErrMissingRequiredField)
		}
		for _, p := range []struct{ field, path string }{
			{"pass1_prompt_path", m.Pass1PromptPath},
			{"pass2_prompt_path", m.Pass2PromptPath},
			{"schema_path", m.SchemaPath},
		} {
			if p.path == "" {
				return NewValidationError("module", id, p.field, ErrMissingRequiredField)
			}
		}
		if m.LLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(m.LLMProvider) {
			return NewValidationError("module", id, "llm_provider", ErrInvalidReference)
		}
	}
	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, p := range v.cfg.LLMProviderRegistry.GetAll() {
		if p.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if p.Address == "" {
			return NewValidationError("llm_provider", name, "address", ErrMissingRequiredField)
		}
		if p.APIKeyEnv != "" {
			if _, ok := os.LookupEnv(p.APIKeyEnv); !ok {
				// Missing API key env vars are a deployment warning, not a
				// fatal validation error: some providers (local sidecars)
				// don't require one.
				continue
			}
		}
	}
	chain := v.cfg.Interpret.LLMChain
	if chain.Primary == "" {
		return NewValidationError("interpret", "llm_chain", "primary", ErrMissingRequiredField)
	}
	for _, name := range chain.Providers() {
		if !v.cfg.LLMProviderRegistry.Has(name) {
			return NewValidationError("interpret", "llm_chain", name, ErrInvalidReference)
		}
	}
	return nil
}
