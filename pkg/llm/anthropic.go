package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lankalegal/neethi/pkg/models"
)

// AnthropicClient calls the Claude API through the official SDK.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a Claude-backed client.
func NewAnthropicClient(apiKey, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}, nil
}

// Generate performs one non-streaming completion.
// Claude has no JSON response mode or seed parameter; JSONOnly is enforced
// by the prompt and determinism by temperature 0.
func (c *AnthropicClient) Generate(ctx context.Context, in *GenerateInput) (*GenerateOutput, error) {
	maxTokens := in.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(in.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(in.Temperature),
	}
	if in.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: in.System}}
	}
	for _, msg := range in.Messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == models.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude generate failed: %w", err)
	}

	var text, thinking strings.Builder
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			thinking.WriteString(block.Thinking)
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return &GenerateOutput{
		Text:       text.String(),
		Thinking:   thinking.String(),
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}

// Close releases the underlying client.
func (c *AnthropicClient) Close() error {
	return nil
}
