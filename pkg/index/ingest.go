package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lankalegal/neethi/pkg/models"
)

// ErrNoBundles indicates the source directory holds no document bundles.
var ErrNoBundles = errors.New("no document bundles found")

// Embedder produces one vector per text. Ingest runs without vectors when
// it is nil; retrieval then ranks by keyword match alone.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// DocumentBundle is one source file of the corpus: a statute or act broken
// into sections, with optional annotations that become graph nodes.
type DocumentBundle struct {
	FileID       string          `json:"file_id"`
	LawName      string          `json:"law_name"`
	Jurisdiction string          `json:"jurisdiction,omitempty"`
	Chapter      string          `json:"chapter,omitempty"`
	EnactedDate  string          `json:"enacted_date,omitempty"`
	Sections     []SectionRecord `json:"sections"`
	Annotations  []Annotation    `json:"annotations,omitempty"`
}

// SectionRecord is one section of a bundle, the unit that becomes a chunk.
type SectionRecord struct {
	SectionID   string   `json:"section_id"`
	Section     string   `json:"section"`
	Heading     string   `json:"heading,omitempty"`
	Text        string   `json:"text"`
	Tags        []string `json:"tags,omitempty"`
	ClauseTypes []string `json:"clause_types,omitempty"`
}

// Annotation is one curated note or extracted entity attached to the corpus.
type Annotation struct {
	ID       string           `json:"id"`
	Type     string           `json:"type,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty"`
	Edges    []AnnotationEdge `json:"edges,omitempty"`
}

// AnnotationEdge links an annotation to another node or to a chunk id.
type AnnotationEdge struct {
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// IngestReport summarizes one ingest run. Warnings carry every recoverable
// defect found in the source bundles.
type IngestReport struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Vectors   int      `json:"vectors"`
	Nodes     int      `json:"nodes"`
	Edges     int      `json:"edges"`
	Warnings  []string `json:"warnings,omitempty"`
}

// IngestDir reads every *.json bundle under srcDir, validates and chunks
// them, optionally embeds each chunk, and returns an index built over the
// result. Bundles are processed in file-name order so reruns produce the
// same corpus.
func IngestDir(ctx context.Context, srcDir string, embedder Embedder) (*Index, *IngestReport, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(srcDir, entry.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoBundles, srcDir)
	}

	report := &IngestReport{}
	var (
		chunks    []models.CorpusChunk
		documents []models.CorpusDocument
		graph     models.EntityGraph
		seenChunk = make(map[string]struct{})
		seenFile  = make(map[string]struct{})
		seenNode  = make(map[string]struct{})
	)

	for _, path := range paths {
		bundle, err := readBundle(path)
		if err != nil {
			report.warnf("%s: %v", filepath.Base(path), err)
			continue
		}

		if bundle.FileID == "" || bundle.LawName == "" {
			report.warnf("%s: missing file_id or law_name, skipped", filepath.Base(path))
			continue
		}
		if _, dup := seenFile[bundle.FileID]; dup {
			report.warnf("%s: duplicate file_id %q, skipped", filepath.Base(path), bundle.FileID)
			continue
		}
		seenFile[bundle.FileID] = struct{}{}

		documents = append(documents, models.CorpusDocument{
			FileID:       bundle.FileID,
			LawName:      bundle.LawName,
			Jurisdiction: bundle.Jurisdiction,
			Chapter:      bundle.Chapter,
			EnactedDate:  bundle.EnactedDate,
		})
		report.Documents++

		for _, section := range bundle.Sections {
			if section.SectionID == "" || strings.TrimSpace(section.Text) == "" {
				report.warnf("%s: section with empty section_id or text, skipped", bundle.FileID)
				continue
			}
			chunkID := bundle.FileID + "::" + section.SectionID
			if _, dup := seenChunk[chunkID]; dup {
				report.warnf("%s: duplicate chunk %q, skipped", bundle.FileID, chunkID)
				continue
			}
			seenChunk[chunkID] = struct{}{}

			sectionNumber := section.Section
			if sectionNumber == "" {
				sectionNumber = section.SectionID
			}
			chunks = append(chunks, models.CorpusChunk{
				ChunkID:     chunkID,
				FileID:      bundle.FileID,
				SectionID:   section.SectionID,
				Section:     sectionNumber,
				Heading:     section.Heading,
				TextPlain:   section.Text,
				Tags:        section.Tags,
				ClauseTypes: section.ClauseTypes,
			})
		}

		for _, ann := range bundle.Annotations {
			if ann.ID == "" {
				report.warnf("%s: annotation with empty id, skipped", bundle.FileID)
				continue
			}
			if _, dup := seenNode[ann.ID]; dup {
				report.warnf("%s: duplicate annotation %q, skipped", bundle.FileID, ann.ID)
				continue
			}
			seenNode[ann.ID] = struct{}{}

			nodeType := models.GraphNodeType(ann.Type)
			if ann.Type == "" {
				nodeType = models.GraphNodeAnnotation
			} else if !nodeType.IsValid() {
				report.warnf("%s: annotation %q has unknown type %q, treated as annotation",
					bundle.FileID, ann.ID, ann.Type)
				nodeType = models.GraphNodeAnnotation
			}
			graph.Nodes = append(graph.Nodes, models.GraphNode{
				ID:       ann.ID,
				Type:     nodeType,
				Metadata: ann.Metadata,
			})

			for _, edge := range ann.Edges {
				if edge.Target == "" {
					report.warnf("%s: annotation %q has edge with empty target, skipped",
						bundle.FileID, ann.ID)
					continue
				}
				graph.Edges = append(graph.Edges, models.GraphEdge{
					Source:   ann.ID,
					Target:   edge.Target,
					Relation: edge.Relation,
				})
			}
		}
	}
	report.Chunks = len(chunks)
	report.Nodes = len(graph.Nodes)
	report.Edges = len(graph.Edges)

	// Edge targets may name annotations or chunk ids; anything else is a
	// dangling reference worth flagging.
	for _, edge := range graph.Edges {
		if _, ok := seenNode[edge.Target]; ok {
			continue
		}
		if _, ok := seenChunk[edge.Target]; ok {
			continue
		}
		report.warnf("graph edge %s -> %s points at an unknown target", edge.Source, edge.Target)
	}

	vectors := map[string][]float32{}
	vectorDim := 0
	if embedder != nil {
		vectorDim = embedder.Dimensions()
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("ingest cancelled: %w", err)
			}
			vec, err := embedder.Embed(ctx, chunk.TextPlain)
			if err != nil {
				report.warnf("embedding %s failed: %v", chunk.ChunkID, err)
				continue
			}
			vectors[chunk.ChunkID] = vec
		}
		if len(vectors) == 0 {
			vectorDim = 0
		}
	}
	report.Vectors = len(vectors)

	ix := New()
	ix.Build(chunks, documents, graph, vectors, vectorDim)
	return ix, report, nil
}

func readBundle(path string) (*DocumentBundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	var bundle DocumentBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	return &bundle, nil
}

func (r *IngestReport) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
