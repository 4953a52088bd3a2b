package agent

import (
	"context"
	"log/slog"

	"github.com/lankalegal/neethi/pkg/agent/prompt"
	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/queue"
)

const (
	// noSourcesConfidence is the ceiling for reasoning over an empty
	// retrieval. The reasoner never calls the model in that case.
	noSourcesConfidence = 0.1

	noSourcesLimitations = "No statutory sources were retrieved for this question, so no grounded analysis is possible."

	unavailableLimitations = "The reasoning model could not be reached for this question."
)

// Reasoner produces a grounded analysis from retrieved sources only. All
// failures (queue overflow, transport, deadline, unparseable output) are
// captured and converted into a low-confidence Reasoning; Reason never
// returns an error.
type Reasoner struct {
	client      llm.Client
	dispatcher  *queue.Dispatcher
	model       string
	temperature float64
	seed        int64
	logger      *slog.Logger
}

// NewReasoner creates the reasoning agent.
func NewReasoner(client llm.Client, dispatcher *queue.Dispatcher, cfg *config.Config) *Reasoner {
	return &Reasoner{
		client:      client,
		dispatcher:  dispatcher,
		model:       cfg.LLMModelReasoning,
		temperature: cfg.LLMTemperature,
		seed:        cfg.LLMSeed,
		logger:      slog.Default(),
	}
}

// Reason analyzes the retrieved sources against the issued query.
// On empty retrieval it emits a fixed no-sources reasoning without touching
// the model.
func (r *Reasoner) Reason(ctx context.Context, retrieval models.RetrievalResult) models.Reasoning {
	if retrieval.Empty() {
		return models.Reasoning{
			Analysis:    "",
			Limitations: noSourcesLimitations,
			Confidence:  noSourcesConfidence,
		}
	}

	system, user := prompt.ReasoningMessages(retrieval.IssuedQuery, retrieval.Sources)
	out, err := generate(ctx, r.dispatcher, r.client, &llm.GenerateInput{
		Model:       r.model,
		System:      system,
		Messages:    []llm.Message{{Role: models.RoleUser, Content: user}},
		Temperature: r.temperature,
		Seed:        r.seed,
		JSONOnly:    true,
	})
	if err != nil {
		r.logger.Warn("Reasoning call failed", "error", err)
		return models.Reasoning{
			Analysis:    "",
			Limitations: unavailableLimitations,
			Confidence:  noSourcesConfidence,
		}
	}

	reasoning := ParseReasoning(out.Text)
	reasoning.Chain = out.Thinking
	return reasoning
}
