package llm

import (
	"context"
	"fmt"

	"github.com/lankalegal/neethi/pkg/config"
)

// NewClient builds the generation client for a provider registry entry.
func NewClient(ctx context.Context, provider *config.LLMProviderConfig) (Client, error) {
	switch provider.Type {
	case config.LLMProviderTypeGoogle:
		return NewGoogleClient(ctx, provider.APIKey())
	case config.LLMProviderTypeAnthropic:
		return NewAnthropicClient(provider.APIKey(), provider.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider.Type)
	}
}

// NewQueryEmbedder builds the query-side embedder, or returns (nil, nil)
// when the deployment has no embedding capability. Retrieval then ranks by
// keyword match alone. Only the Gemini API serves embeddings; the Claude
// provider has none, so a secondary-provider deployment still embeds through
// Gemini when GEMINI_API_KEY is present.
func NewQueryEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	return newEmbedder(ctx, cfg, "RETRIEVAL_QUERY")
}

// NewDocumentEmbedder builds the corpus-side embedder used at ingest time.
func NewDocumentEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	return newEmbedder(ctx, cfg, "RETRIEVAL_DOCUMENT")
}

func newEmbedder(ctx context.Context, cfg *config.Config, taskType string) (Embedder, error) {
	if cfg.EmbeddingModel == "" {
		return nil, nil
	}

	google, err := cfg.Providers.Get(string(config.ProviderPrimary))
	if err != nil || google.Type != config.LLMProviderTypeGoogle {
		return nil, nil
	}
	apiKey := google.APIKey()
	if apiKey == "" {
		return nil, nil
	}

	// 768 matches the text-embedding and gemini-embedding families.
	return NewGoogleEmbedder(ctx, apiKey, cfg.EmbeddingModel, taskType, 768)
}
