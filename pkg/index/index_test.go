package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankalegal/neethi/pkg/models"
)

func testDocuments() []models.CorpusDocument {
	return []models.CorpusDocument{
		{
			FileID:       "penal_code",
			LawName:      "Penal Code",
			Jurisdiction: "LK",
			Chapter:      "19",
			EnactedDate:  "1883-01-01",
		},
		{
			FileID:       "motor_traffic_act",
			LawName:      "Motor Traffic Act",
			Jurisdiction: "LK",
			Chapter:      "203",
		},
	}
}

func testChunks() []models.CorpusChunk {
	return []models.CorpusChunk{
		{
			ChunkID:     "penal_code::s299",
			FileID:      "penal_code",
			SectionID:   "s299",
			Section:     "299",
			Heading:     "Culpable homicide",
			TextPlain:   "Whoever causes death by doing an act with the intention of causing death commits culpable homicide",
			Tags:        []string{"criminal"},
			ClauseTypes: []string{"offence"},
		},
		{
			ChunkID:     "penal_code::s300",
			FileID:      "penal_code",
			SectionID:   "s300",
			Section:     "300",
			Heading:     "Murder",
			TextPlain:   "Culpable homicide is murder if the act by which the death is caused is done with the intention of causing death",
			Tags:        []string{"criminal"},
			ClauseTypes: []string{"offence"},
		},
		{
			ChunkID:     "motor_traffic_act::s151",
			FileID:      "motor_traffic_act",
			SectionID:   "s151",
			Section:     "151",
			Heading:     "Reckless driving",
			TextPlain:   "Any person who drives a motor vehicle recklessly on a highway commits an offence",
			Tags:        []string{"traffic"},
			ClauseTypes: []string{"offence", "penalty"},
		},
	}
}

func testGraph() models.EntityGraph {
	return models.EntityGraph{
		Nodes: []models.GraphNode{
			{ID: "ann-homicide", Type: models.GraphNodeAnnotation, Metadata: map[string]any{"note": "homicide ladder"}},
			{ID: "ent-intention", Type: models.GraphNodeEntity},
		},
		Edges: []models.GraphEdge{
			{Source: "ann-homicide", Target: "penal_code::s299", Relation: "explains"},
			{Source: "ann-homicide", Target: "ent-intention", Relation: "mentions"},
			{Source: "ent-intention", Target: "penal_code::s300", Relation: "cited_in"},
		},
	}
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"penal_code::s299":        {1, 0, 0},
		"penal_code::s300":        {0.9, 0.1, 0},
		"motor_traffic_act::s151": {0, 1, 0},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix := New()
	ix.Build(testChunks(), testDocuments(), testGraph(), testVectors(), 3)
	return ix
}

func TestNewIndexIsEmpty(t *testing.T) {
	ix := New()
	assert.Equal(t, 0, ix.ChunkCount())
	assert.Equal(t, 0, ix.VectorDim())
	assert.True(t, ix.BuiltAt().IsZero())
	assert.Nil(t, ix.Search("murder", nil, 5, nil))
}

func TestBuildPopulatesSnapshot(t *testing.T) {
	ix := newTestIndex(t)

	assert.Equal(t, 3, ix.ChunkCount())
	assert.Equal(t, 3, ix.VectorDim())
	assert.WithinDuration(t, time.Now().UTC(), ix.BuiltAt(), time.Minute)

	chunk, ok := ix.GetChunk("penal_code::s300")
	require.True(t, ok)
	assert.Equal(t, "300", chunk.Section)

	doc, ok := ix.Document("penal_code")
	require.True(t, ok)
	assert.Equal(t, "Penal Code", doc.LawName)

	_, ok = ix.GetChunk("penal_code::s999")
	assert.False(t, ok)
}

func TestSearchKeywordOnly(t *testing.T) {
	ix := newTestIndex(t)

	// Without a query vector the score is the distinct-token match count.
	hits := ix.Search("murder intention", nil, 5, nil)
	require.Len(t, hits, 2)
	assert.Equal(t, "penal_code::s300", hits[0].Chunk.ChunkID)
	assert.Equal(t, 2.0, hits[0].Score)
	assert.Equal(t, "penal_code::s299", hits[1].Chunk.ChunkID)
	assert.Equal(t, 1.0, hits[1].Score)
	assert.Equal(t, "Penal Code", hits[0].Document.LawName)
}

func TestSearchRequiresTokenMatch(t *testing.T) {
	ix := newTestIndex(t)

	// A chunk with no matching token is not a candidate even when a query
	// vector points straight at it.
	hits := ix.Search("murder", nil, 5, []float32{0, 1, 0})
	require.Len(t, hits, 1)
	assert.Equal(t, "penal_code::s300", hits[0].Chunk.ChunkID)
}

func TestSearchHybridBoost(t *testing.T) {
	ix := newTestIndex(t)

	// s299 matches "homicide" and sits at cosine 1 against the query
	// vector, so its boosted score beats s300's boosted lower cosine.
	hits := ix.Search("culpable homicide", nil, 5, []float32{1, 0, 0})
	require.Len(t, hits, 2)
	assert.Equal(t, "penal_code::s299", hits[0].Chunk.ChunkID)
	assert.InDelta(t, 1.2, hits[0].Score, 1e-9)
	assert.Equal(t, "penal_code::s300", hits[1].Chunk.ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchPureVector(t *testing.T) {
	ix := newTestIndex(t)

	// No query tokens: every chunk is a candidate, ranked by cosine alone.
	hits := ix.Search("", nil, 2, []float32{1, 0, 0})
	require.Len(t, hits, 2)
	assert.Equal(t, "penal_code::s299", hits[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "penal_code::s300", hits[1].Chunk.ChunkID)
}

func TestSearchFacetFilters(t *testing.T) {
	ix := newTestIndex(t)

	tests := []struct {
		name    string
		query   string
		filters map[string]string
		wantIDs []string
	}{
		{
			name:    "tag filter narrows candidates",
			query:   "offence",
			filters: map[string]string{FacetTags: "traffic"},
			wantIDs: []string{"motor_traffic_act::s151"},
		},
		{
			name:    "filter and tokens disjoint",
			query:   "offence",
			filters: map[string]string{FacetTags: "criminal"},
			wantIDs: nil,
		},
		{
			name:    "clause type with token",
			query:   "murder",
			filters: map[string]string{FacetClauseType: "offence"},
			wantIDs: []string{"penal_code::s300"},
		},
		{
			name:    "unknown facet value",
			query:   "murder",
			filters: map[string]string{FacetTags: "maritime"},
			wantIDs: nil,
		},
		{
			name:    "file filter without tokens",
			query:   "",
			filters: map[string]string{FacetFileID: "penal_code"},
			wantIDs: []string{"penal_code::s299", "penal_code::s300"},
		},
		{
			name:    "jurisdiction facet comes from the document",
			query:   "reckless",
			filters: map[string]string{FacetJurisdiction: "LK"},
			wantIDs: []string{"motor_traffic_act::s151"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := ix.Search(tt.query, tt.filters, 10, nil)
			gotIDs := make([]string, 0, len(hits))
			for _, hit := range hits {
				gotIDs = append(gotIDs, hit.Chunk.ChunkID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, gotIDs)
				return
			}
			assert.Equal(t, tt.wantIDs, gotIDs)
		})
	}
}

func TestSearchTiesBreakByChunkID(t *testing.T) {
	ix := newTestIndex(t)

	// "death" appears in both penal code sections; equal scores order by id.
	hits := ix.Search("death", nil, 5, nil)
	require.Len(t, hits, 2)
	assert.Equal(t, "penal_code::s299", hits[0].Chunk.ChunkID)
	assert.Equal(t, "penal_code::s300", hits[1].Chunk.ChunkID)
	assert.Equal(t, hits[0].Score, hits[1].Score)
}

func TestSearchCapsAtK(t *testing.T) {
	ix := newTestIndex(t)

	hits := ix.Search("death", nil, 1, nil)
	require.Len(t, hits, 1)

	assert.Nil(t, ix.Search("death", nil, 0, nil))
	assert.Nil(t, ix.Search("death", nil, -1, nil))
}

func TestSearchChunkWithoutVector(t *testing.T) {
	ix := New()
	chunks := testChunks()
	vectors := testVectors()
	delete(vectors, "penal_code::s299")
	ix.Build(chunks, testDocuments(), models.EntityGraph{}, vectors, 3)

	// The vectorless chunk still matches by keyword but scores cosine 0.
	hits := ix.Search("culpable homicide", nil, 5, []float32{1, 0, 0})
	require.Len(t, hits, 2)
	assert.Equal(t, "penal_code::s300", hits[0].Chunk.ChunkID)
	assert.Equal(t, "penal_code::s299", hits[1].Chunk.ChunkID)
	assert.Equal(t, 0.0, hits[1].Score)
}

func TestSimilar(t *testing.T) {
	ix := newTestIndex(t)

	hits := ix.Similar("penal_code::s299", 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "penal_code::s300", hits[0].Chunk.ChunkID)
	assert.Equal(t, "motor_traffic_act::s151", hits[1].Chunk.ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	assert.Nil(t, ix.Similar("penal_code::s999", 2))
	assert.Nil(t, ix.Similar("penal_code::s299", 0))
}

func TestSimilarWithoutVectors(t *testing.T) {
	ix := New()
	ix.Build(testChunks(), testDocuments(), models.EntityGraph{}, nil, 0)
	assert.Nil(t, ix.Similar("penal_code::s299", 3))
}

func TestGraphQuery(t *testing.T) {
	ix := newTestIndex(t)

	tests := []struct {
		name      string
		nodeID    string
		depth     int
		wantNodes []string
		wantEdges int
	}{
		{
			name:      "depth zero returns only the node",
			nodeID:    "ann-homicide",
			depth:     0,
			wantNodes: []string{"ann-homicide"},
			wantEdges: 0,
		},
		{
			name:      "depth one reaches direct neighbors",
			nodeID:    "ann-homicide",
			depth:     1,
			wantNodes: []string{"ann-homicide", "ent-intention"},
			wantEdges: 2,
		},
		{
			name:      "depth two follows entity citations",
			nodeID:    "ann-homicide",
			depth:     2,
			wantNodes: []string{"ann-homicide", "ent-intention"},
			wantEdges: 3,
		},
		{
			name:      "reverse edges are walked",
			nodeID:    "ent-intention",
			depth:     1,
			wantNodes: []string{"ann-homicide", "ent-intention"},
			wantEdges: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.GraphQuery(tt.nodeID, tt.depth)
			gotIDs := make([]string, 0, len(got.Nodes))
			for _, node := range got.Nodes {
				gotIDs = append(gotIDs, node.ID)
			}
			assert.Equal(t, tt.wantNodes, gotIDs)
			assert.Len(t, got.Edges, tt.wantEdges)
		})
	}
}

func TestGraphQueryUnknownNode(t *testing.T) {
	ix := newTestIndex(t)

	got := ix.GraphQuery("no-such-node", 3)
	assert.Empty(t, got.Nodes)
	assert.Empty(t, got.Edges)

	got = ix.GraphQuery("ann-homicide", -1)
	assert.Empty(t, got.Nodes)
}

func TestBuildSwapsAtomically(t *testing.T) {
	ix := newTestIndex(t)
	require.Equal(t, 3, ix.ChunkCount())

	// Rebuilding with a smaller corpus replaces the whole snapshot.
	ix.Build(testChunks()[:1], testDocuments()[:1], models.EntityGraph{}, nil, 0)
	assert.Equal(t, 1, ix.ChunkCount())
	assert.Equal(t, 0, ix.VectorDim())
	assert.Nil(t, ix.Search("murder", nil, 5, nil))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Culpable HOMICIDE", []string{"culpable", "homicide"}},
		{"splits on any whitespace", "a\tb\nc  d", []string{"a", "b", "c", "d"}},
		{"empty", "   ", []string{}},
		{"punctuation stays attached", "section 299,", []string{"section", "299,"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}
