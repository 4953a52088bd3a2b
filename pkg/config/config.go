// Package config loads and validates service configuration from the
// environment plus an optional providers.yaml for the LLM provider registry.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultHTTPPort            = "8080"
	DefaultCorpusIndexDir      = "./data/index"
	DefaultAuditLogDir         = "./data/audit"
	DefaultLLMTemperature      = 0.0
	DefaultRetrievalMaxSources = 5
	DefaultRequestDeadline     = 60 * time.Second
	DefaultStepDeadline        = 30 * time.Second
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultQueueSize           = 32
	DefaultQueueWorkers        = 4
	DefaultMemoryTailLimit     = 20
)

// Config is the resolved service configuration.
type Config struct {
	HTTPPort string
	LogLevel slog.Level

	// Persisted state locations
	CorpusIndexDir string
	AuditLogDir    string

	// Case memory store; empty means the in-memory development binder
	DatabaseURL string

	// LLM settings
	LLMProvider       ProviderName
	LLMModelReasoning string
	LLMModelValidator string
	LLMTemperature    float64
	LLMSeed           int64 // 0 means unset
	EmbeddingModel    string

	// Retrieval settings
	RetrievalMaxSources int
	RetrievalBackend    RetrievalBackend
	MCPCorpusEndpoint   string

	ValidationMode ValidationMode

	// Deadlines
	RequestDeadline time.Duration
	StepDeadline    time.Duration

	// Bounded LLM dispatch queue
	QueueSize    int
	QueueWorkers int

	MemoryTailLimit int

	// Audit extras
	RedactAuditPII      bool
	ExportRetentionDays int

	// LLM provider registry (built-ins merged with optional providers.yaml)
	Providers *ProviderRegistry
}

// Load resolves configuration from the environment and the optional
// providers file named by PROVIDERS_CONFIG, then validates it.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := loadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	providers, err := LoadProviders(os.Getenv("PROVIDERS_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("failed to load provider registry: %w", err)
	}
	cfg.Providers = providers

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.InfoContext(ctx, "Configuration initialized",
		"provider", cfg.LLMProvider,
		"validation_mode", cfg.ValidationMode,
		"retrieval_backend", cfg.RetrievalBackend,
		"max_sources", cfg.RetrievalMaxSources)
	return cfg, nil
}

func loadFromEnv() (*Config, error) {
	temperature, err := getEnvFloat("LLM_TEMPERATURE", DefaultLLMTemperature)
	if err != nil {
		return nil, err
	}
	maxSources, err := getEnvInt("RETRIEVAL_MAX_SOURCES", DefaultRetrievalMaxSources)
	if err != nil {
		return nil, err
	}
	requestDeadline, err := getEnvMillis("REQUEST_DEADLINE_MS", DefaultRequestDeadline)
	if err != nil {
		return nil, err
	}
	stepDeadline, err := getEnvMillis("STEP_DEADLINE_MS", DefaultStepDeadline)
	if err != nil {
		return nil, err
	}
	seed, err := getEnvInt64("LLM_SEED", 0)
	if err != nil {
		return nil, err
	}
	queueSize, err := getEnvInt("LLM_QUEUE_SIZE", DefaultQueueSize)
	if err != nil {
		return nil, err
	}
	queueWorkers, err := getEnvInt("LLM_WORKERS", DefaultQueueWorkers)
	if err != nil {
		return nil, err
	}
	tailLimit, err := getEnvInt("MEMORY_TAIL_LIMIT", DefaultMemoryTailLimit)
	if err != nil {
		return nil, err
	}
	retentionDays, err := getEnvInt("EXPORT_RETENTION_DAYS", 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPPort:            getEnvOrDefault("HTTP_PORT", DefaultHTTPPort),
		LogLevel:            parseLogLevel(os.Getenv("LOG_LEVEL")),
		CorpusIndexDir:      getEnvOrDefault("CORPUS_INDEX_DIR", DefaultCorpusIndexDir),
		AuditLogDir:         getEnvOrDefault("AUDIT_LOG_DIR", DefaultAuditLogDir),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		LLMProvider:         ProviderName(getEnvOrDefault("LLM_PROVIDER", string(ProviderPrimary))),
		LLMModelReasoning:   os.Getenv("LLM_MODEL_REASONING"),
		LLMModelValidator:   os.Getenv("LLM_MODEL_VALIDATOR"),
		LLMTemperature:      temperature,
		LLMSeed:             seed,
		EmbeddingModel:      getEnvOrDefault("LLM_EMBEDDING_MODEL", DefaultEmbeddingModel),
		RetrievalMaxSources: maxSources,
		RetrievalBackend:    RetrievalBackend(getEnvOrDefault("RETRIEVAL_BACKEND", string(RetrievalBackendIndex))),
		MCPCorpusEndpoint:   os.Getenv("MCP_CORPUS_ENDPOINT"),
		ValidationMode:      ValidationMode(getEnvOrDefault("VALIDATION_MODE", string(ValidationRuleOnly))),
		RequestDeadline:     requestDeadline,
		StepDeadline:        stepDeadline,
		QueueSize:           queueSize,
		QueueWorkers:        queueWorkers,
		MemoryTailLimit:     tailLimit,
		RedactAuditPII:      getEnvBool("AUDIT_REDACT_PII", false),
		ExportRetentionDays: retentionDays,
	}, nil
}

// Validate checks the resolved configuration for consistency.
func (c *Config) Validate() error {
	if !c.LLMProvider.IsValid() {
		return NewValidationError("LLM_PROVIDER", fmt.Errorf("%w: %q", ErrInvalidValue, c.LLMProvider))
	}
	if !c.ValidationMode.IsValid() {
		return NewValidationError("VALIDATION_MODE", fmt.Errorf("%w: %q", ErrInvalidValue, c.ValidationMode))
	}
	if !c.RetrievalBackend.IsValid() {
		return NewValidationError("RETRIEVAL_BACKEND", fmt.Errorf("%w: %q", ErrInvalidValue, c.RetrievalBackend))
	}
	if c.RetrievalBackend == RetrievalBackendMCP && c.MCPCorpusEndpoint == "" {
		return NewValidationError("MCP_CORPUS_ENDPOINT", ErrMissingRequiredField)
	}
	if c.CorpusIndexDir == "" {
		return NewValidationError("CORPUS_INDEX_DIR", ErrMissingRequiredField)
	}
	if c.AuditLogDir == "" {
		return NewValidationError("AUDIT_LOG_DIR", ErrMissingRequiredField)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return NewValidationError("LLM_TEMPERATURE", fmt.Errorf("%w: must be in [0, 2], got %v", ErrInvalidValue, c.LLMTemperature))
	}
	// 0 is legal and means retrieval always returns empty.
	if c.RetrievalMaxSources < 0 {
		return NewValidationError("RETRIEVAL_MAX_SOURCES", fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidValue, c.RetrievalMaxSources))
	}
	if c.RequestDeadline <= 0 {
		return NewValidationError("REQUEST_DEADLINE_MS", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.StepDeadline <= 0 {
		return NewValidationError("STEP_DEADLINE_MS", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if c.QueueSize < 1 {
		return NewValidationError("LLM_QUEUE_SIZE", fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, c.QueueSize))
	}
	if c.QueueWorkers < 1 {
		return NewValidationError("LLM_WORKERS", fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, c.QueueWorkers))
	}
	if c.MemoryTailLimit < 1 {
		return NewValidationError("MEMORY_TAIL_LIMIT", fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidValue, c.MemoryTailLimit))
	}
	if c.ExportRetentionDays < 0 {
		return NewValidationError("EXPORT_RETENTION_DAYS", fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidValue, c.ExportRetentionDays))
	}
	if c.Providers != nil {
		if err := c.Providers.Validate(); err != nil {
			return err
		}
		if !c.Providers.Has(string(c.LLMProvider)) {
			return NewValidationError("LLM_PROVIDER", fmt.Errorf("%w: %q", ErrProviderNotFound, c.LLMProvider))
		}
	}
	return nil
}

// ReasoningModel returns the reasoner's model: LLM_MODEL_REASONING when set,
// otherwise the selected provider's default model.
func (c *Config) ReasoningModel() string {
	if c.LLMModelReasoning != "" {
		return c.LLMModelReasoning
	}
	return c.providerDefaultModel()
}

// ValidatorModel returns the Phase B validator's model: LLM_MODEL_VALIDATOR
// when set, otherwise the selected provider's default model.
func (c *Config) ValidatorModel() string {
	if c.LLMModelValidator != "" {
		return c.LLMModelValidator
	}
	return c.providerDefaultModel()
}

func (c *Config) providerDefaultModel() string {
	if c.Providers == nil {
		return ""
	}
	p, err := c.Providers.Get(string(c.LLMProvider))
	if err != nil {
		return ""
	}
	return p.Model
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %q", ErrInvalidValue, raw))
	}
	return val, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %q", ErrInvalidValue, raw))
	}
	return val, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewValidationError(key, fmt.Errorf("%w: %q", ErrInvalidValue, raw))
	}
	return val, nil
}

func getEnvMillis(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return 0, NewValidationError(key, fmt.Errorf("%w: %q", ErrInvalidValue, raw))
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getEnvBool(key string, defaultVal bool) bool {
	switch os.Getenv(key) {
	case "on", "true", "1", "yes":
		return true
	case "off", "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}
