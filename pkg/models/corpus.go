package models

// CorpusChunk is the smallest indexed unit of a legal document, one section
// or sub-section. Vectors live in the index's vector store, keyed by ChunkID.
type CorpusChunk struct {
	ChunkID     string   `json:"chunk_id"`
	FileID      string   `json:"file_id"`
	SectionID   string   `json:"section_id"`
	Section     string   `json:"section"`
	Heading     string   `json:"heading,omitempty"`
	TextPlain   string   `json:"text_plain"`
	Tags        []string `json:"tags,omitempty"`
	ClauseTypes []string `json:"clause_types,omitempty"`
}

// CorpusDocument is the document-level record a chunk belongs to.
type CorpusDocument struct {
	FileID       string `json:"file_id"`
	LawName      string `json:"law_name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Chapter      string `json:"chapter,omitempty"`
	EnactedDate  string `json:"enacted_date,omitempty"`
}

// GraphNodeType distinguishes annotation nodes from extracted entities.
type GraphNodeType string

const (
	GraphNodeAnnotation GraphNodeType = "annotation"
	GraphNodeEntity     GraphNodeType = "entity"
)

// IsValid checks if the graph node type is valid
func (t GraphNodeType) IsValid() bool {
	return t == GraphNodeAnnotation || t == GraphNodeEntity
}

// GraphNode is one node of the entity graph.
type GraphNode struct {
	ID       string         `json:"id"`
	Type     GraphNodeType  `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GraphEdge is one directed, typed edge of the entity graph.
type GraphEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// EntityGraph is the annotation/entity graph built at ingest time.
type EntityGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
