package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lankalegal/neethi/pkg/index"
	"github.com/lankalegal/neethi/pkg/llm"
	"github.com/lankalegal/neethi/pkg/models"
	"github.com/lankalegal/neethi/pkg/queue"
)

// IndexGateway serves queries from the in-process corpus index. The query
// embedding goes through the bounded LLM work queue; a full queue, a failed
// embed, or an expired deadline all degrade to an empty result. Keyword-only
// ranking applies only when the deployment has no embedder or the corpus
// holds no vectors.
type IndexGateway struct {
	index      *index.Index
	embedder   llm.Embedder
	dispatcher *queue.Dispatcher
	window     *healthWindow
	logger     *slog.Logger
}

// NewIndexGateway creates the in-process gateway. embedder may be nil.
func NewIndexGateway(ix *index.Index, embedder llm.Embedder, dispatcher *queue.Dispatcher) *IndexGateway {
	return &IndexGateway{
		index:      ix,
		embedder:   embedder,
		dispatcher: dispatcher,
		window:     &healthWindow{},
		logger:     slog.Default(),
	}
}

// QuerySources implements Gateway.
func (g *IndexGateway) QuerySources(ctx context.Context, processedQuery string, maxSources int) models.RetrievalResult {
	if maxSources == 0 {
		return emptyResult(processedQuery, "retrieval disabled: source budget is 0")
	}
	k := clampSources(maxSources)

	var queryVec []float32
	if g.embedder != nil && g.index.VectorDim() > 0 {
		var embedErr error
		err := g.dispatcher.Do(ctx, func(taskCtx context.Context) {
			queryVec, embedErr = g.embedder.Embed(taskCtx, processedQuery)
		})
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			g.window.record(true)
			g.logger.Warn("Query embedding rejected, work queue full")
			return emptyResult(processedQuery, "llm work queue full")
		case err != nil:
			g.window.record(true)
			return emptyResult(processedQuery, "llm work queue stopped")
		case embedErr != nil:
			g.window.record(true)
			g.logger.Warn("Query embedding failed", "error", embedErr)
			return emptyResult(processedQuery, "query embedding failed: "+embedErr.Error())
		}
	}

	hits := g.index.Search(processedQuery, nil, k, queryVec)
	sources := make([]models.LegalSource, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, sourceFromHit(hit))
	}
	sortSources(sources)

	g.window.record(false)
	return successResult(processedQuery, sources)
}

// Healthy implements Gateway.
func (g *IndexGateway) Healthy() bool {
	return g.index.ChunkCount() > 0 && !g.window.failing()
}

// Close implements Gateway. The index and dispatcher are owned by the caller.
func (g *IndexGateway) Close() error {
	return nil
}
