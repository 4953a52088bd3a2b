// Package llm provides the provider-agnostic LLM client used by the
// reasoning and validation agents, plus the embedder used for query vectors.
package llm

import (
	"context"
	"errors"

	"github.com/lankalegal/neethi/pkg/models"
)

var (
	// ErrEmptyResponse indicates the provider returned no usable text
	ErrEmptyResponse = errors.New("llm returned empty response")

	// ErrMissingAPIKey indicates the provider's API key env is unset
	ErrMissingAPIKey = errors.New("llm provider API key not configured")

	// ErrUnsupportedProvider indicates an unknown provider type
	ErrUnsupportedProvider = errors.New("unsupported llm provider type")
)

// Message is one turn of conversation sent to a provider.
type Message struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// GenerateInput is a single-shot generation request.
type GenerateInput struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	// Seed pins provider-side sampling when non-zero (providers that
	// support it), keeping reruns reproducible.
	Seed int64
	// MaxTokens caps the response; 0 means the client default.
	MaxTokens int
	// JSONOnly asks the provider for a JSON-typed response where supported.
	JSONOnly bool
}

// GenerateOutput is the provider's completed response.
type GenerateOutput struct {
	// Text is the user-visible completion.
	Text string
	// Thinking carries provider-side reasoning traces when exposed.
	// It feeds the private chain and never reaches users.
	Thinking   string
	TokensUsed int
}

// Client is a single-shot text generation client.
type Client interface {
	Generate(ctx context.Context, in *GenerateInput) (*GenerateOutput, error)
	Close() error
}

// Embedder turns text into a fixed-dimension vector for hybrid retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

const defaultMaxTokens = 4096
