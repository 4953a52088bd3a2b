package config

import (
	"fmt"
	"os"
	"sync"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// LLMProviderConfig defines one LLM provider entry in the registry.
type LLMProviderConfig struct {
	// Provider implementation (required)
	Type LLMProviderType `yaml:"type"`

	// Default model when no model env override is set (required)
	Model string `yaml:"model"`

	// Environment variable holding the API key
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// Optional custom endpoint/base URL
	BaseURL string `yaml:"base_url,omitempty"`

	// Optional provider-level temperature override
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// APIKey resolves the provider's API key from the environment.
func (p *LLMProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// providersYAML represents the complete providers.yaml file structure
type providersYAML struct {
	LLMProviders map[string]*LLMProviderConfig `yaml:"llm_providers"`
}

// builtinProviders returns the built-in provider registry entries.
// providers.yaml entries are merged over these.
func builtinProviders() map[string]*LLMProviderConfig {
	return map[string]*LLMProviderConfig{
		string(ProviderPrimary): {
			Type:      LLMProviderTypeGoogle,
			Model:     "gemini-2.5-flash",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		string(ProviderSecondary): {
			Type:      LLMProviderTypeAnthropic,
			Model:     "claude-sonnet-4-5",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
	}
}

// LoadProviders builds the provider registry from the built-in entries,
// merged with the YAML file at path when path is non-empty. Environment
// variables in the file use {{.VAR}} template syntax.
func LoadProviders(path string) (*ProviderRegistry, error) {
	providers := builtinProviders()

	if path != "" {
		user, err := loadProvidersYAML(path)
		if err != nil {
			return nil, NewLoadError(path, err)
		}
		for name, userCfg := range user {
			if base, ok := providers[name]; ok {
				// User values override built-ins field by field.
				if err := mergo.Merge(base, userCfg, mergo.WithOverride); err != nil {
					return nil, fmt.Errorf("failed to merge provider %q: %w", name, err)
				}
			} else {
				providers[name] = userCfg
			}
		}
	}

	return NewProviderRegistry(providers), nil
}

func loadProvidersYAML(path string) (map[string]*LLMProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	data = ExpandEnv(data)

	config := providersYAML{LLMProviders: make(map[string]*LLMProviderConfig)}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return config.LLMProviders, nil
}

// ProviderRegistry stores LLM provider configurations with thread-safe access
type ProviderRegistry struct {
	providers map[string]*LLMProviderConfig
	mu        sync.RWMutex
}

// NewProviderRegistry creates a new provider registry. The registry owns
// its own copy of the map.
func NewProviderRegistry(providers map[string]*LLMProviderConfig) *ProviderRegistry {
	copied := make(map[string]*LLMProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &ProviderRegistry{providers: copied}
}

// Get retrieves a provider configuration by name (thread-safe)
func (r *ProviderRegistry) Get(name string) (*LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Has checks if a provider exists in the registry (thread-safe)
func (r *ProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.providers[name]
	return exists
}

// Names returns all registered provider names (thread-safe)
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Validate checks every registry entry for required fields and valid enums.
func (r *ProviderRegistry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, p := range r.providers {
		if p == nil {
			return NewValidationError(name, ErrMissingRequiredField)
		}
		if !p.Type.IsValid() {
			return NewValidationError(name, fmt.Errorf("%w: type %q", ErrInvalidValue, p.Type))
		}
		if p.Model == "" {
			return NewValidationError(name, fmt.Errorf("%w: model", ErrMissingRequiredField))
		}
	}
	return nil
}
