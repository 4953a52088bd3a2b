// Package agent implements the pipeline agents: the deterministic planner,
// the source-grounded reasoner, the validation gatekeeper, and the
// synthesis/refusal formatter. Each agent captures its own failures and
// returns a typed result; none of them surfaces a raw error to the
// orchestrator.
package agent

import (
	"context"

	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/queue"
)

// generate runs one LLM call through the bounded work queue. Queue overflow
// and dispatcher shutdown come back as the queue's errors; provider failures
// come back as the call's own.
func generate(ctx context.Context, dispatcher *queue.Dispatcher, client llm.Client, in *llm.GenerateInput) (*llm.GenerateOutput, error) {
	var (
		out     *llm.GenerateOutput
		callErr error
	)
	if err := dispatcher.Do(ctx, func(taskCtx context.Context) {
		out, callErr = client.Generate(taskCtx, in)
	}); err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	return out, nil
}
