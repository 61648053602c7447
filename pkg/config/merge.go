package config

// mergeModules merges built-in and user-defined module configurations.
// User-defined modules override built-in modules with the same id.
func mergeModules(builtinModules map[string]ModuleConfig, userModules map[string]ModuleConfig) map[string]*ModuleConfig {
	result := make(map[string]*ModuleConfig, len(builtinModules)+len(userModules))

	for id, m := range builtinModules {
		mCopy := m
		result[id] = &mCopy
	}
	for id, m := range userModules {
		mCopy := m
		result[id] = &mCopy
	}
	return result
}

// mergeLLMProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-in providers
// with the same name.
func mergeLLMProviders(builtinProviders map[string]LLMProviderConfig, userProviders map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtinProviders)+len(userProviders))

	for name, p := range builtinProviders {
		pCopy := p
		result[name] = &pCopy
	}
	for name, p := range userProviders {
		pCopy := p
		result[name] = &pCopy
	}
	return result
}
