package config

// Config holds intake configuration.
// Stored at: ~/.intake/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	LogLevel     string                    `mapstructure:"log_level" yaml:"log_level"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type"`                       // "openai", "openrouter", "heuristic"
	Model          string  `mapstructure:"model" yaml:"model"`                     // Model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`                 // API key (supports ${ENV_VAR} syntax)
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit"`           // Requests per second
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // HTTP timeout
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`         // Transport retries (0 disables)
}

// DefaultsCfg specifies default extraction behavior.
type DefaultsCfg struct {
	LLMProvider string  `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
	Offline     bool    `mapstructure:"offline" yaml:"offline"`           // Force the heuristic extractor, no network
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`     // Completion budget per extraction
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`   // Decoding temperature (0 = deterministic)
	RecordCalls bool    `mapstructure:"record_calls" yaml:"record_calls"` // Append calls to ~/.intake/calls.jsonl
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      8.0,
				Enabled:        true,
				TimeoutSeconds: 120,
				MaxRetries:     2,
			},
			"openrouter": {
				Type:           "openrouter",
				Model:          "openai/gpt-4o-mini",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      10.0,
				Enabled:        true,
				TimeoutSeconds: 120,
				MaxRetries:     2,
			},
			"heuristic": {
				Type:    "heuristic",
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openai",
			Offline:     false,
			MaxTokens:   200,
			Temperature: 0,
			RecordCalls: true,
		},
		LogLevel: "info",
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// ResolveAPIKey returns the resolved API key for a provider, expanding
// any ${ENV_VAR} reference.
func (c *Config) ResolveAPIKey(name string) string {
	cfg, ok := c.LLMProviders[name]
	if !ok {
		return ""
	}
	return ResolveEnvVars(cfg.APIKey)
}
