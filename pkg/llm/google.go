package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/lankalegal/neethi/pkg/models"
)

// GoogleClient calls the Gemini API through the google.golang.org/genai SDK.
type GoogleClient struct {
	client *genai.Client
}

// NewGoogleClient creates a Gemini-backed client.
func NewGoogleClient(ctx context.Context, apiKey string) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GoogleClient{client: client}, nil
}

// Generate performs one non-streaming completion.
func (c *GoogleClient) Generate(ctx context.Context, in *GenerateInput) (*GenerateOutput, error) {
	contents := make([]*genai.Content, 0, len(in.Messages))
	for _, msg := range in.Messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(in.Temperature)),
	}
	if in.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(in.System, genai.RoleUser)
	}
	if in.Seed != 0 {
		cfg.Seed = genai.Ptr(int32(in.Seed))
	}
	maxTokens := in.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	cfg.MaxOutputTokens = int32(maxTokens)
	if in.JSONOnly {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := c.client.Models.GenerateContent(ctx, in.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	out := &GenerateOutput{Text: text}
	if result.UsageMetadata != nil {
		out.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// Close releases the underlying client. The genai SDK's HTTP client holds
// no resources that need explicit release.
func (c *GoogleClient) Close() error {
	return nil
}

// GoogleEmbedder generates query or document embeddings via the Gemini API.
// Queries and corpus documents use different task types, so each side of
// retrieval constructs its own embedder.
type GoogleEmbedder struct {
	client   *genai.Client
	model    string
	taskType string
	dim      int
}

// NewGoogleEmbedder creates an embedder for the given model and task type.
func NewGoogleEmbedder(ctx context.Context, apiKey, model string, taskType string, dim int) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GoogleEmbedder{client: client, model: model, taskType: taskType, dim: dim}, nil
}

// Embed generates an embedding for a single text.
func (e *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: e.taskType,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, ErrEmptyResponse
	}
	return result.Embeddings[0].Values, nil
}

// Dimensions returns the embedding dimensionality.
func (e *GoogleEmbedder) Dimensions() int {
	return e.dim
}
