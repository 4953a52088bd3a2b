// Neethi corpus ingest. Builds the hybrid index from a directory of
// document bundles and writes the snapshot the service loads at startup.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/index"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/version"
)

func main() {
	srcDir := flag.String("src", "./corpus", "Directory of corpus document bundles")
	outDir := flag.String("out", config.DefaultCorpusIndexDir, "Directory for the index snapshot")
	embed := flag.Bool("embed", false, "Embed chunk vectors through the configured embedding model")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envFile, "error", err)
	}

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	slog.Info("Starting corpus ingest",
		"version", version.Full(), "src", *srcDir, "out", *outDir, "embed", *embed)

	var embedder llm.Embedder
	if *embed {
		embedder, err = llm.NewDocumentEmbedder(ctx, cfg)
		if err != nil {
			slog.Error("Failed to initialize embedder", "error", err)
			os.Exit(1)
		}
		if embedder == nil {
			slog.Error("Embedding requested but no embedding provider is configured; set GEMINI_API_KEY and LLM_EMBEDDING_MODEL")
			os.Exit(1)
		}
	}

	ix, report, err := index.IngestDir(ctx, *srcDir, embedder)
	if err != nil {
		slog.Error("Ingest failed", "src", *srcDir, "error", err)
		os.Exit(1)
	}

	if err := ix.Save(*outDir); err != nil {
		slog.Error("Failed to save index snapshot", "out", *outDir, "error", err)
		os.Exit(1)
	}

	for _, warning := range report.Warnings {
		slog.Warn("Ingest warning", "detail", warning)
	}
	slog.Info("Ingest complete",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"vectors", report.Vectors,
		"graph_nodes", report.Nodes,
		"graph_edges", report.Edges,
		"out", *outDir)
}
