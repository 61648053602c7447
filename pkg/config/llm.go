package config

import (
	"fmt"
	"sync"
	"time"
)

// LLMProviderConfig defines an LLM provider endpoint reached over the
// grpc transport in pkg/llm.
type LLMProviderConfig struct {
	// Model is the model identifier, part of the cache key so
	// responses from different models never collide.
	Model string `yaml:"model" validate:"required"`

	// Address is the grpc dial target for the LLM sidecar.
	Address string `yaml:"address" validate:"required"`

	// APIKeyEnv names the environment variable holding the provider API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// CallTimeout is the per-call timeout.
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`

	// TransportRetries is the number of transport-layer retries on a
	// transient error, distinct from the quality-directed retries at the
	// application layer.
	TransportRetries int `yaml:"transport_retries,omitempty" validate:"omitempty,min=0"`
}

// LLMFallbackChain is the primary → secondary → tertiary model chain used
// by interpretation-pipeline stages.
type LLMFallbackChain struct {
	Primary   string `yaml:"primary" validate:"required"`
	Secondary string `yaml:"secondary,omitempty"`
	Tertiary  string `yaml:"tertiary,omitempty"`
}

// Providers returns the configured providers in fallback order, skipping
// unset tiers.
func (c LLMFallbackChain) Providers() []string {
	out := make([]string, 0, 3)
	for _, p := range []string{c.Primary, c.Secondary, c.Tertiary} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LLMProviderRegistry stores LLM provider configurations with thread-safe access.
type LLMProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewLLMProviderRegistry creates a new LLM provider registry.
func NewLLMProviderRegistry(providers map[string]*LLMProviderConfig) *LLMProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &LLMProviderRegistry{providers: copied}
}

// Get retrieves an LLM provider configuration by name.
func (r *LLMProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return p, nil
}

// GetAll returns all LLM provider configurations (copy).
func (r *LLMProviderRegistry) GetAll() map[string]*LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*LLMProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Has reports whether a provider exists in the registry.
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Len returns the number of providers in the registry.
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
