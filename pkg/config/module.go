package config

import (
	"fmt"
	"sync"
)

// ModuleConfig defines one extraction module: its prompts, its JSON
// schema, and the instance type it produces. Metadata only — pkg/extractor does the extraction.
type ModuleConfig struct {
	// Description is a human-readable summary of what this module extracts.
	Description string `yaml:"description,omitempty"`

	// InstanceType is the USDM-style instance type tag written into the
	// module's output `_metadata.instanceType` field.
	InstanceType string `yaml:"instance_type" validate:"required"`

	// Pass1PromptPath is the template file for the values pass.
	Pass1PromptPath string `yaml:"pass1_prompt_path" validate:"required"`

	// Pass2PromptPath is the template file for the provenance pass.
	Pass2PromptPath string `yaml:"pass2_prompt_path" validate:"required"`

	// SchemaPath is the JSON-Schema file this module's output must satisfy.
	SchemaPath string `yaml:"schema_path" validate:"required"`

	// Enabled controls whether a fresh run includes this module.
	Enabled bool `yaml:"enabled"`

	// IdentityFields lists top-level fields that must be preserved verbatim
	// across pass 1 → pass 2 and across surgical retries.
	IdentityFields []string `yaml:"identity_fields,omitempty"`

	// MaxRetries overrides the system default retry bound for this module.
	MaxRetries *int `yaml:"max_retries,omitempty" validate:"omitempty,min=0"`

	// LLMProvider overrides the system default LLM provider for this module.
	LLMProvider string `yaml:"llm_provider,omitempty"`
}

// ModuleRegistry stores module configurations with thread-safe access and
// preserves declaration order, which is the orchestrator's run order.
type ModuleRegistry struct {
	mu      sync.RWMutex
	order   []string
	modules map[string]*ModuleConfig
}

// NewModuleRegistry creates a registry from an ordered list of (id, config)
// pairs. order determines the module run order; modules must contain an
// entry for every id in order.
func NewModuleRegistry(order []string, modules map[string]*ModuleConfig) *ModuleRegistry {
	orderCopy := make([]string, len(order))
	copy(orderCopy, order)

	copied := make(map[string]*ModuleConfig, len(modules))
	for k, v := range modules {
		copied[k] = v
	}
	return &ModuleRegistry{order: orderCopy, modules: copied}
}

// Get retrieves a module configuration by id.
func (r *ModuleRegistry) Get(id string) (*ModuleConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}
	return m, nil
}

// Ordered returns module ids in declaration order.
func (r *ModuleRegistry) Ordered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Enabled returns the ids of enabled modules, in declaration order.
func (r *ModuleRegistry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if m, ok := r.modules[id]; ok && m.Enabled {
			out = append(out, id)
		}
	}
	return out
}

// GetAll returns all module configurations keyed by id (copy).
func (r *ModuleRegistry) GetAll() map[string]*ModuleConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*ModuleConfig, len(r.modules))
	for k, v := range r.modules {
		result[k] = v
	}
	return result
}

// Has reports whether a module exists in the registry.
func (r *ModuleRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[id]
	return ok
}

// Len returns the number of modules in the registry.
func (r *ModuleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}
