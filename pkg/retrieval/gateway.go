// Package retrieval is the only path from the reasoning layer to legal text.
// A gateway never summarizes or paraphrases: source text is byte-identical
// to the corpus chunk it came from, and every failure mode converts to an
// empty result instead of an error.
package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/lankalegal/neethi/pkg/config"
	"github.com/lankalegal/neethi/pkg/index"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/queue"
)

// Bounds for the per-query source budget. A budget of exactly 0 disables
// retrieval outright; anything else clamps into this range.
const (
	MinSources = 1
	MaxSources = 20
)

// Gateway is the single typed entry point to the corpus.
type Gateway interface {
	// QuerySources retrieves up to maxSources verbatim passages for the
	// processed query. It never returns an error: transport failures,
	// queue overflow, and deadlines all yield an empty result whose
	// Warning field notes the degradation for the audit trail.
	QuerySources(ctx context.Context, processedQuery string, maxSources int) models.RetrievalResult

	// Healthy reports whether the backend can serve queries: the corpus
	// is non-empty (or the corpus server reachable) and the recent-query
	// failure rate sits below the threshold.
	Healthy() bool

	Close() error
}

// New builds the gateway selected by RETRIEVAL_BACKEND.
func New(ctx context.Context, cfg *config.Config, ix *index.Index, embedder llm.Embedder, dispatcher *queue.Dispatcher) (Gateway, error) {
	switch cfg.RetrievalBackend {
	case config.RetrievalBackendMCP:
		return NewMCPGateway(ctx, cfg.MCPCorpusEndpoint)
	default:
		return NewIndexGateway(ix, embedder, dispatcher), nil
	}
}

func clampSources(n int) int {
	if n < MinSources {
		return MinSources
	}
	if n > MaxSources {
		return MaxSources
	}
	return n
}

func emptyResult(query, warning string) models.RetrievalResult {
	return models.RetrievalResult{
		Sources:     []models.LegalSource{},
		IssuedQuery: query,
		Timestamp:   time.Now().UTC(),
		Status:      models.RetrievalStatusEmpty,
		Warning:     warning,
	}
}

func successResult(query string, sources []models.LegalSource) models.RetrievalResult {
	if len(sources) == 0 {
		return emptyResult(query, "")
	}
	return models.RetrievalResult{
		Sources:     sources,
		IssuedQuery: query,
		Timestamp:   time.Now().UTC(),
		Status:      models.RetrievalStatusSuccess,
	}
}

// sortSources orders by score descending, ties by section lexicographic
// order and then chunk id.
func sortSources(sources []models.LegalSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Metadata.Score != sources[j].Metadata.Score {
			return sources[i].Metadata.Score > sources[j].Metadata.Score
		}
		if sources[i].Section != sources[j].Section {
			return sources[i].Section < sources[j].Section
		}
		return sources[i].Metadata.ChunkID < sources[j].Metadata.ChunkID
	})
}

func sourceFromHit(hit index.ScoredChunk) models.LegalSource {
	return models.LegalSource{
		LawName: hit.Document.LawName,
		Section: hit.Chunk.Section,
		Text:    hit.Chunk.TextPlain,
		Metadata: models.SourceMetadata{
			EnactedDate: hit.Document.EnactedDate,
			Chapter:     hit.Document.Chapter,
			Score:       hit.Score,
			ChunkID:     hit.Chunk.ChunkID,
		},
	}
}
