// Package config provides configuration management for the protocol
// extraction engine, including module, LLM provider, interpretation,
// queue, and retention configurations.
package config

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state. This is the primary
// object returned by Initialize() and threaded through the application.
type Config struct {
	configDir string

	Defaults            *Defaults
	System              *SystemConfig
	Queue               *QueueConfig
	Retention           *RetentionConfig
	Interpret           *InterpretConfig
	ModuleRegistry      *ModuleRegistry
	LLMProviderRegistry *LLMProviderRegistry
}

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	Modules      int
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		Modules:      c.ModuleRegistry.Len(),
		LLMProviders: c.LLMProviderRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetModule retrieves a module configuration by id.
func (c *Config) GetModule(id string) (*ModuleConfig, error) {
	return c.ModuleRegistry.Get(id)
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
