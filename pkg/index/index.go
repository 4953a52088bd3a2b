// Package index implements the hybrid keyword + vector + entity-graph index
// over the legal corpus. All structures are built in memory from the
// persisted corpus files and swapped atomically behind a read-write lock, so
// readers always see one consistent generation.
package index

import (
	"sort"
	"sync"
	"time"

	"github.com/lankalegal/neethi/pkg/models"
)

// Facet fields the index maintains chunk-id sets for.
const (
	FacetFileID       = "file_id"
	FacetTags         = "tags"
	FacetClauseType   = "clause_type"
	FacetJurisdiction = "jurisdiction"
)

// ScoredChunk is one search hit with its hybrid score and parent document.
type ScoredChunk struct {
	Chunk    models.CorpusChunk
	Document models.CorpusDocument
	Score    float64
}

// snapshot holds every in-memory structure for one corpus generation.
// A snapshot is immutable after build.
type snapshot struct {
	chunks    map[string]models.CorpusChunk
	documents map[string]models.CorpusDocument
	chunkIDs  []string // sorted, for deterministic full scans

	inverted map[string]map[string]struct{}            // token → chunk id set
	facets   map[string]map[string]map[string]struct{} // field → value → chunk id set

	vectors   map[string][]float32
	vectorDim int

	graph   *graph
	builtAt time.Time
}

// Index is the process-wide hot-swappable handle over the current snapshot.
type Index struct {
	mu   sync.RWMutex
	snap *snapshot
}

// New returns an Index with an empty snapshot. Searches against it return
// nothing; the gateway reports it unhealthy until a corpus is loaded.
func New() *Index {
	return &Index{snap: buildSnapshot(nil, nil, models.EntityGraph{}, nil, 0, time.Time{})}
}

// swap installs a new snapshot atomically. Readers holding the old snapshot
// finish against it; new calls see the replacement.
func (ix *Index) swap(snap *snapshot) {
	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()
}

// current takes a read lease on the live snapshot. The lock guards only the
// pointer read; callers work on the immutable snapshot without the lock.
func (ix *Index) current() *snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snap
}

// ChunkCount returns the number of indexed chunks.
func (ix *Index) ChunkCount() int {
	return len(ix.current().chunks)
}

// VectorDim returns the embedding dimension, 0 when the corpus has no vectors.
func (ix *Index) VectorDim() int {
	return ix.current().vectorDim
}

// BuiltAt returns the build time of the live snapshot.
func (ix *Index) BuiltAt() time.Time {
	return ix.current().builtAt
}

// GetChunk returns the chunk with the given id.
func (ix *Index) GetChunk(id string) (models.CorpusChunk, bool) {
	chunk, ok := ix.current().chunks[id]
	return chunk, ok
}

// Document returns the document record for a file id.
func (ix *Index) Document(fileID string) (models.CorpusDocument, bool) {
	doc, ok := ix.current().documents[fileID]
	return doc, ok
}

// buildSnapshot constructs the derived structures (inverted index, facets,
// sorted id list) from the primary records. Vectors and graph are taken as
// given; dim 0 means no vectors.
func buildSnapshot(
	chunks []models.CorpusChunk,
	documents []models.CorpusDocument,
	entityGraph models.EntityGraph,
	vectors map[string][]float32,
	vectorDim int,
	builtAt time.Time,
) *snapshot {
	snap := &snapshot{
		chunks:    make(map[string]models.CorpusChunk, len(chunks)),
		documents: make(map[string]models.CorpusDocument, len(documents)),
		inverted:  make(map[string]map[string]struct{}),
		facets:    make(map[string]map[string]map[string]struct{}),
		vectors:   vectors,
		vectorDim: vectorDim,
		graph:     buildGraph(entityGraph),
		builtAt:   builtAt,
	}
	if snap.vectors == nil {
		snap.vectors = make(map[string][]float32)
	}

	for _, doc := range documents {
		snap.documents[doc.FileID] = doc
	}

	for _, chunk := range chunks {
		snap.chunks[chunk.ChunkID] = chunk
		snap.chunkIDs = append(snap.chunkIDs, chunk.ChunkID)

		for _, token := range Tokenize(chunk.TextPlain) {
			postings, ok := snap.inverted[token]
			if !ok {
				postings = make(map[string]struct{})
				snap.inverted[token] = postings
			}
			postings[chunk.ChunkID] = struct{}{}
		}

		snap.addFacet(FacetFileID, chunk.FileID, chunk.ChunkID)
		for _, tag := range chunk.Tags {
			snap.addFacet(FacetTags, tag, chunk.ChunkID)
		}
		for _, ct := range chunk.ClauseTypes {
			snap.addFacet(FacetClauseType, ct, chunk.ChunkID)
		}
		if doc, ok := snap.documents[chunk.FileID]; ok && doc.Jurisdiction != "" {
			snap.addFacet(FacetJurisdiction, doc.Jurisdiction, chunk.ChunkID)
		}
	}
	sort.Strings(snap.chunkIDs)

	return snap
}

func (s *snapshot) addFacet(field, value, chunkID string) {
	if value == "" {
		return
	}
	values, ok := s.facets[field]
	if !ok {
		values = make(map[string]map[string]struct{})
		s.facets[field] = values
	}
	ids, ok := values[value]
	if !ok {
		ids = make(map[string]struct{})
		values[value] = ids
	}
	ids[chunkID] = struct{}{}
}
