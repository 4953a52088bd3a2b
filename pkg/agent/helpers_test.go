package agent

import (
	"context"
	"testing"
	"time"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/queue"
)

// fakeClient scripts one LLM response (or error) and records the last input.
type fakeClient struct {
	out    *llm.GenerateOutput
	err    error
	calls  int
	lastIn *llm.GenerateInput
}

func (f *fakeClient) Generate(_ context.Context, in *llm.GenerateInput) (*llm.GenerateOutput, error) {
	f.calls++
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeClient) Close() error { return nil }

func startDispatcher(t *testing.T) *queue.Dispatcher {
	t.Helper()
	d := queue.NewDispatcher(4, 2)
	d.Start()
	t.Cleanup(d.Stop)
	return d
}

func stoppedDispatcher(t *testing.T) *queue.Dispatcher {
	t.Helper()
	d := queue.NewDispatcher(1, 1)
	d.Start()
	d.Stop()
	return d
}

func testAgentConfig() *config.Config {
	return &config.Config{
		LLMModelReasoning: "reasoning-model",
		LLMModelValidator: "validator-model",
		LLMTemperature:    0.0,
		LLMSeed:           42,
		ValidationMode:    config.ValidationRuleOnly,
	}
}

func penalCodeSources() []models.LegalSource {
	return []models.LegalSource{
		{
			LawName: "Penal Code of Sri Lanka",
			Section: "299",
			Text:    "Whoever causes death by doing an act with the intention of causing death commits culpable homicide.",
			Metadata: models.SourceMetadata{
				Score:   2.4,
				ChunkID: "penal_code::s299",
			},
		},
		{
			LawName: "Penal Code of Sri Lanka",
			Section: "300",
			Text:    "Culpable homicide is murder if the act is done with the intention of causing death.",
			Metadata: models.SourceMetadata{
				Score:   1.8,
				ChunkID: "penal_code::s300",
			},
		},
	}
}

func successfulRetrieval() models.RetrievalResult {
	return models.RetrievalResult{
		Sources:     penalCodeSources(),
		IssuedQuery: "What is the definition of culpable homicide?",
		Timestamp:   time.Now().UTC(),
		Status:      models.RetrievalStatusSuccess,
	}
}

func emptyRetrieval() models.RetrievalResult {
	return models.RetrievalResult{
		Sources:     []models.LegalSource{},
		IssuedQuery: "Quantum computing and intellectual property law",
		Timestamp:   time.Now().UTC(),
		Status:      models.RetrievalStatusEmpty,
	}
}
