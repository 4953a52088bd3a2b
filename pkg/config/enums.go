package config

// ProviderName selects which configured LLM provider the pipeline uses.
type ProviderName string

const (
	// ProviderPrimary is the default provider (Google Gemini)
	ProviderPrimary ProviderName = "primary"
	// ProviderSecondary is the fallback provider (Anthropic Claude)
	ProviderSecondary ProviderName = "secondary"
)

// IsValid checks if the provider name is valid
func (p ProviderName) IsValid() bool {
	return p == ProviderPrimary || p == ProviderSecondary
}

// LLMProviderType defines supported LLM provider implementations
type LLMProviderType string

const (
	// LLMProviderTypeGoogle is the Google Gemini API
	LLMProviderTypeGoogle LLMProviderType = "google"
	// LLMProviderTypeAnthropic is the Anthropic Claude API
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
)

// IsValid checks if the LLM provider type is valid
func (t LLMProviderType) IsValid() bool {
	return t == LLMProviderTypeGoogle || t == LLMProviderTypeAnthropic
}

// ValidationMode selects which validation phases run.
type ValidationMode string

const (
	// ValidationRuleOnly runs only the deterministic rule checks.
	// This is the mode for strict court-admissibility deployments.
	ValidationRuleOnly ValidationMode = "rule_only"
	// ValidationRulePlusLLM runs rule checks plus the LLM-assisted phase
	ValidationRulePlusLLM ValidationMode = "rule_plus_llm"
)

// IsValid checks if the validation mode is valid
func (m ValidationMode) IsValid() bool {
	return m == ValidationRuleOnly || m == ValidationRulePlusLLM
}

// RetrievalBackend selects how the gateway reaches the corpus.
type RetrievalBackend string

const (
	// RetrievalBackendIndex queries the in-process corpus index
	RetrievalBackendIndex RetrievalBackend = "index"
	// RetrievalBackendMCP queries an external corpus server over MCP
	RetrievalBackendMCP RetrievalBackend = "mcp"
)

// IsValid checks if the retrieval backend is valid
func (b RetrievalBackend) IsValid() bool {
	return b == RetrievalBackendIndex || b == RetrievalBackendMCP
}
