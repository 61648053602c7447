package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// protocolxYAMLConfig represents the complete protocolx.yaml file structure.
type protocolxYAMLConfig struct {
	System       *systemYAMLConfig              `yaml:"system"`
	LLMProviders map[string]LLMProviderConfig    `yaml:"llm_providers"`
	Modules      map[string]ModuleConfig         `yaml:"modules"`
	Defaults     *Defaults                       `yaml:"defaults"`
	Interpret    *InterpretConfig                `yaml:"interpret"`
	Queue        *QueueConfig                    `yaml:"queue"`
	Retention    *RetentionConfig                `yaml:"retention"`
}

type systemYAMLConfig struct {
	CacheDir            string `yaml:"cache_dir"`
	ConceptSearchDBPath string `yaml:"concept_search_db_path"`
	OutputDir           string `yaml:"output_dir"`
	MaskingEnabled      *bool  `yaml:"masking_enabled"`
}

// Initialize loads and validates the complete configuration from
// configDir/protocolx.yaml, merging built-in defaults with any
// user-provided overrides.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	_ = ctx // reserved for future context-aware config sources (e.g. remote config stores)

	path := filepath.Join(configDir, "protocolx.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No protocolx.yaml found, using built-in defaults only", "path", path)
			return buildConfig(configDir, protocolxYAMLConfig{})
		}
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var parsed protocolxYAMLConfig
	if err := yaml.Unmarshal(expanded, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return buildConfig(configDir, parsed)
}

func buildConfig(configDir string, parsed protocolxYAMLConfig) (*Config, error) {
	defaults := &Defaults{
		Quality:        DefaultQualityThresholds(),
		QualityWeights: DefaultQualityWeights(),
		Retry:          DefaultRetryConfig(),
	}
	if parsed.Defaults != nil {
		if err := mergo.Merge(defaults, parsed.Defaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging defaults: %w", err)
		}
	}

	system := DefaultSystemConfig()
	if parsed.System != nil {
		if parsed.System.CacheDir != "" {
			system.CacheDir = parsed.System.CacheDir
		}
		if parsed.System.ConceptSearchDBPath != "" {
			system.ConceptSearchDBPath = parsed.System.ConceptSearchDBPath
		}
		if parsed.System.OutputDir != "" {
			system.OutputDir = parsed.System.OutputDir
		}
		if parsed.System.MaskingEnabled != nil {
			system.MaskingEnabled = *parsed.System.MaskingEnabled
		}
	}

	queue := DefaultQueueConfig()
	if parsed.Queue != nil {
		if err := mergo.Merge(queue, parsed.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging queue config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if parsed.Retention != nil {
		if err := mergo.Merge(retention, parsed.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging retention config: %w", err)
		}
	}

	interpret := DefaultInterpretConfig()
	if parsed.Interpret != nil {
		if err := mergo.Merge(interpret, parsed.Interpret, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging interpret config: %w", err)
		}
	}

	mergedModules := mergeModules(builtinModules(), parsed.Modules)
	order := builtinModuleOrder
	for id := range parsed.Modules {
		if !containsString(order, id) {
			order = append(order, id)
		}
	}
	moduleRegistry := NewModuleRegistry(order, mergedModules)

	llmProviderRegistry := NewLLMProviderRegistry(
		mergeLLMProviders(map[string]LLMProviderConfig{}, parsed.LLMProviders),
	)

	cfg := &Config{
		configDir:           configDir,
		Defaults:            defaults,
		System:              system,
		Queue:               queue,
		Retention:           retention,
		Interpret:           interpret,
		ModuleRegistry:      moduleRegistry,
		LLMProviderRegistry: llmProviderRegistry,
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	slog.Info("Configuration loaded",
		"modules", cfg.ModuleRegistry.Len(),
		"llm_providers", cfg.LLMProviderRegistry.Len(),
		"config_dir", configDir)

	return cfg, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
