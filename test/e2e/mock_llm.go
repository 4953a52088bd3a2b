package e2e

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lankalegal/neethi/pkg/llm"
)

// LLMScriptEntry defines a single scripted LLM response.
type LLMScriptEntry struct {
	Text string // returned as the completion text
	Err  error  // returned from Generate() instead of a response
}

// ScriptedLLMClient implements llm.Client with a dual-dispatch script:
// sequential entries are consumed in call order, which fits the strictly
// ordered pipeline; routed entries match on message content for tests that
// run sessions concurrently, where call order is non-deterministic.
type ScriptedLLMClient struct {
	mu             sync.Mutex
	sequential     []LLMScriptEntry
	seqIndex       int
	routes         map[string][]LLMScriptEntry // message substring → per-route script
	routeIndex     map[string]int
	capturedInputs []*llm.GenerateInput
}

// NewScriptedLLMClient creates an empty script.
func NewScriptedLLMClient() *ScriptedLLMClient {
	return &ScriptedLLMClient{
		routes:     make(map[string][]LLMScriptEntry),
		routeIndex: make(map[string]int),
	}
}

// AddSequential adds an entry consumed in order for non-routed calls.
func (c *ScriptedLLMClient) AddSequential(entry LLMScriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sequential = append(c.sequential, entry)
}

// AddRouted adds an entry consumed when any user message contains match.
// Route on the question text so concurrent sessions stay distinguishable.
func (c *ScriptedLLMClient) AddRouted(match string, entry LLMScriptEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[match] = append(c.routes[match], entry)
}

// Generate implements llm.Client.
func (c *ScriptedLLMClient) Generate(_ context.Context, in *llm.GenerateInput) (*llm.GenerateOutput, error) {
	c.mu.Lock()
	c.capturedInputs = append(c.capturedInputs, in)
	entry, err := c.nextEntry(in)
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if entry.Err != nil {
		return nil, entry.Err
	}
	return &llm.GenerateOutput{Text: entry.Text, TokensUsed: 15}, nil
}

// Close implements llm.Client.
func (c *ScriptedLLMClient) Close() error { return nil }

// CallCount returns the total number of Generate() calls made.
func (c *ScriptedLLMClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.capturedInputs)
}

// CapturedInputs returns a copy of every request the client has seen.
func (c *ScriptedLLMClient) CapturedInputs() []*llm.GenerateInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	inputs := make([]*llm.GenerateInput, len(c.capturedInputs))
	copy(inputs, c.capturedInputs)
	return inputs
}

// nextEntry selects the next script entry: routed dispatch first, then the
// sequential fallback. Must be called with c.mu held.
func (c *ScriptedLLMClient) nextEntry(in *llm.GenerateInput) (*LLMScriptEntry, error) {
	for match, entries := range c.routes {
		if !messageContains(in, match) {
			continue
		}
		idx := c.routeIndex[match]
		if idx < len(entries) {
			c.routeIndex[match] = idx + 1
			return &entries[idx], nil
		}
	}

	if c.seqIndex < len(c.sequential) {
		entry := &c.sequential[c.seqIndex]
		c.seqIndex++
		return entry, nil
	}

	return nil, fmt.Errorf("ScriptedLLMClient: no more entries (sequential=%d/%d)",
		c.seqIndex, len(c.sequential))
}

func messageContains(in *llm.GenerateInput, match string) bool {
	for _, msg := range in.Messages {
		if strings.Contains(msg.Content, match) {
			return true
		}
	}
	return false
}
