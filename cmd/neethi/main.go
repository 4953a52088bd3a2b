// Neethi reasoning service. Serves the legal query pipeline over HTTP,
// runs the bounded LLM dispatch queue, and owns the audit trail.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lankalegal/neethi/pkg/agent"
	"github.com/lankalegal/neethi/pkg/api"
	"github.com/lankalegal/neethi/pkg/audit"
	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/index"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/memory"
	"github.com/lankalegal/neethi/pkg/pipeline"
	"github.com/lankalegal/neethi/pkg/queue"
	"github.com/lankalegal/neethi/pkg/retrieval"
	"github.com/lankalegal/neethi/pkg/version"
)

// httpShutdownTimeout bounds the drain of in-flight requests on shutdown.
const httpShutdownTimeout = 5 * time.Second

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envFile, "error", err)
	}

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	slog.Info("Starting neethi",
		"version", version.Full(),
		"http_port", cfg.HTTPPort,
		"provider", cfg.LLMProvider,
		"retrieval_backend", cfg.RetrievalBackend)

	// 2. Corpus index snapshot. A missing snapshot is not fatal: the service
	// comes up degraded and /health says so until an ingest lands.
	ix := index.New()
	if err := ix.Load(cfg.CorpusIndexDir); err != nil {
		slog.Warn("Corpus index not loaded, serving degraded until ingest",
			"dir", cfg.CorpusIndexDir, "error", err)
	} else {
		slog.Info("Corpus index loaded",
			"chunks", ix.ChunkCount(), "built_at", ix.BuiltAt())
	}

	// 3. Bounded LLM dispatch queue
	dispatcher := queue.NewDispatcher(cfg.QueueSize, cfg.QueueWorkers)
	dispatcher.Start()

	// 4. LLM client and query embedder
	provider, err := cfg.Providers.Get(string(cfg.LLMProvider))
	if err != nil {
		slog.Error("LLM provider not in registry", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}
	llmClient, err := llm.NewClient(ctx, provider)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := llmClient.Close(); err != nil {
			slog.Error("Error closing LLM client", "error", err)
		}
	}()
	slog.Info("LLM client initialized",
		"provider", cfg.LLMProvider, "reasoning_model", cfg.ReasoningModel())

	embedder, err := llm.NewQueryEmbedder(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize embedder", "error", err)
		os.Exit(1)
	}
	if embedder == nil {
		slog.Warn("No embedding capability, retrieval ranks by keyword match only")
	}

	// 5. Retrieval gateway
	gateway, err := retrieval.New(ctx, cfg, ix, embedder, dispatcher)
	if err != nil {
		slog.Error("Failed to initialize retrieval gateway", "backend", cfg.RetrievalBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			slog.Error("Error closing retrieval gateway", "error", err)
		}
	}()

	// 6. Case memory binder
	binder, err := memory.NewBinder(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize case memory", "error", err)
		os.Exit(1)
	}
	defer binder.Close()

	// 7. Audit logger and export retention sweeper
	auditLogger, err := audit.NewLogger(cfg)
	if err != nil {
		slog.Error("Failed to initialize audit logger", "dir", cfg.AuditLogDir, "error", err)
		os.Exit(1)
	}
	sweeper := audit.NewSweeper(cfg)
	sweeper.Start(ctx)

	// 8. Pipeline
	orchestrator := pipeline.New(pipeline.Deps{
		Planner:   agent.NewPlanner(),
		Retriever: gateway,
		Reasoner:  agent.NewReasoner(llmClient, dispatcher, cfg),
		Validator: agent.NewValidator(llmClient, dispatcher, cfg),
		Formatter: agent.NewFormatter(),
		Audit:     auditLogger,
		Binder:    binder,
	}, cfg)

	// 9. HTTP server (non-blocking)
	httpServer := api.NewServer(orchestrator, auditLogger, gateway)
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	slog.Info("neethi started",
		"queue_workers", cfg.QueueWorkers,
		"validation_mode", cfg.ValidationMode)

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown: stop accepting requests, then stop the sweeper
	// and drain the dispatch queue. The deferred closes release the binder,
	// gateway, and LLM client after that.
	shutdownCtx, cancel := context.WithTimeout(ctx, httpShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	sweeper.Stop()
	dispatcher.Stop()

	slog.Info("Shutdown complete")
}
