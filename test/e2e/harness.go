// Package e2e provides end-to-end test infrastructure for the full query
// pipeline: a real corpus index, retrieval gateway, agents, audit trail, and
// HTTP server, with only the LLM scripted.
package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/agent"
	"github.com/lankalegal/neethi/pkg/api"
	"github.com/lankalegal/neethi/pkg/audit"
	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/index"
	"github.com/lankalegal/neethi/pkg/memory"
	"github.com/lankalegal/neethi/pkg/pipeline"
	"github.com/lankalegal/neethi/pkg/queue"
	"github.com/lankalegal/neethi/pkg/retrieval"
)

// TestApp boots a complete service instance for e2e testing.
type TestApp struct {
	Config *config.Config
	Index  *index.Index

	// Test wiring
	LLMClient *ScriptedLLMClient

	// Real infrastructure
	Dispatcher *queue.Dispatcher
	Gateway    retrieval.Gateway
	Binder     memory.Binder
	Audit      *audit.Logger
	Pipeline   *pipeline.Orchestrator
	Server     *api.Server

	// Runtime
	BaseURL string // e.g. "http://127.0.0.1:54321"

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	cfg       *config.Config
	llmClient *ScriptedLLMClient
	corpusDir string
	gateway   retrieval.Gateway
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithConfig sets a custom config.
func WithConfig(cfg *config.Config) TestAppOption {
	return func(c *testAppConfig) { c.cfg = cfg }
}

// WithLLMClient sets a pre-scripted LLM client.
func WithLLMClient(client *ScriptedLLMClient) TestAppOption {
	return func(c *testAppConfig) { c.llmClient = client }
}

// WithCorpusDir ingests bundles from dir instead of testdata/corpus.
func WithCorpusDir(dir string) TestAppOption {
	return func(c *testAppConfig) { c.corpusDir = dir }
}

// WithGateway injects a pre-built retrieval gateway, skipping the ingest
// step. Used for tests that need a degraded or scripted corpus backend.
func WithGateway(g retrieval.Gateway) TestAppOption {
	return func(c *testAppConfig) { c.gateway = g }
}

// NewTestApp creates and starts a full test instance.
// Shutdown is registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{corpusDir: "testdata/corpus"}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.cfg == nil {
		tc.cfg = defaultTestConfig()
	}
	if tc.cfg.AuditLogDir == "" {
		tc.cfg.AuditLogDir = t.TempDir()
	}
	if tc.llmClient == nil {
		tc.llmClient = NewScriptedLLMClient()
	}

	// 1. Corpus index from the fixture bundles. No embedder, so ranking is
	// keyword-only and deterministic for a fixed corpus.
	var ix *index.Index
	if tc.gateway == nil {
		var err error
		ix, _, err = index.IngestDir(context.Background(), tc.corpusDir, nil)
		require.NoError(t, err)
	}

	// 2. Bounded LLM work queue.
	dispatcher := queue.NewDispatcher(tc.cfg.QueueSize, tc.cfg.QueueWorkers)
	dispatcher.Start()

	// 3. Retrieval gateway over the in-process index.
	gateway := tc.gateway
	if gateway == nil {
		gateway = retrieval.NewIndexGateway(ix, nil, dispatcher)
	}

	// 4. Case memory and audit trail.
	binder := memory.NewInMemoryBinder()
	auditLogger, err := audit.NewLogger(tc.cfg)
	require.NoError(t, err)

	// 5. Pipeline with real agents and the scripted model.
	orchestrator := pipeline.New(pipeline.Deps{
		Planner:   agent.NewPlanner(),
		Retriever: gateway,
		Reasoner:  agent.NewReasoner(tc.llmClient, dispatcher, tc.cfg),
		Validator: agent.NewValidator(tc.llmClient, dispatcher, tc.cfg),
		Formatter: agent.NewFormatter(),
		Audit:     auditLogger,
		Binder:    binder,
	}, tc.cfg)

	// 6. HTTP server on a random port.
	server := api.NewServer(orchestrator, auditLogger, gateway)
	httpServer := httptest.NewServer(server.Handler())

	app := &TestApp{
		Config:     tc.cfg,
		Index:      ix,
		LLMClient:  tc.llmClient,
		Dispatcher: dispatcher,
		Gateway:    gateway,
		Binder:     binder,
		Audit:      auditLogger,
		Pipeline:   orchestrator,
		Server:     server,
		BaseURL:    httpServer.URL,
		t:          t,
	}

	// Register cleanup in reverse-creation order.
	t.Cleanup(func() {
		httpServer.Close()
		binder.Close()
		_ = gateway.Close()
		dispatcher.Stop()
	})

	return app
}

// defaultTestConfig mirrors the production defaults with deadlines short
// enough for tests and deterministic model settings.
func defaultTestConfig() *config.Config {
	return &config.Config{
		LLMProvider:         config.ProviderPrimary,
		LLMModelReasoning:   "scripted-reasoning",
		LLMModelValidator:   "scripted-validator",
		LLMSeed:             7,
		RetrievalMaxSources: config.DefaultRetrievalMaxSources,
		ValidationMode:      config.ValidationRuleOnly,
		RequestDeadline:     10 * time.Second,
		StepDeadline:        5 * time.Second,
		QueueSize:           8,
		QueueWorkers:        2,
		MemoryTailLimit:     config.DefaultMemoryTailLimit,
	}
}
