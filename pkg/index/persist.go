package index

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lankalegal/neethi/pkg/models"
)

// Corpus file names inside the index directory.
const (
	chunksFile   = "chunks.json"
	metadataFile = "fastmap_metadata.json"
	vectorsFile  = "fastmap_vectors.json"
)

// ErrNoCorpus indicates the index directory has no chunks file to load.
var ErrNoCorpus = errors.New("no corpus found in index directory")

// metadataEnvelope is the on-disk shape of fastmap_metadata.json.
type metadataEnvelope struct {
	Documents   []models.CorpusDocument `json:"documents"`
	Graph       models.EntityGraph      `json:"graph"`
	VectorDim   int                     `json:"vector_dim"`
	ChunkCount  int                     `json:"chunk_count"`
	VectorCount int                     `json:"vector_count"`
	BuiltAt     time.Time               `json:"built_at"`
}

// vectorsEnvelope is the on-disk shape of fastmap_vectors.json. Data holds
// the dense little-endian float32 matrix, one row per id in IDs order,
// base64-encoded.
type vectorsEnvelope struct {
	Dim  int      `json:"dim"`
	IDs  []string `json:"ids"`
	Data string   `json:"data"`
}

// Build installs a fresh snapshot over the given records. Vectors may be
// nil for a keyword-only corpus.
func (ix *Index) Build(
	chunks []models.CorpusChunk,
	documents []models.CorpusDocument,
	entityGraph models.EntityGraph,
	vectors map[string][]float32,
	vectorDim int,
) {
	ix.swap(buildSnapshot(chunks, documents, entityGraph, vectors, vectorDim, time.Now().UTC()))
}

// Save writes the live snapshot to dir as the three corpus files. Existing
// files are overwritten.
func (ix *Index) Save(dir string) error {
	snap := ix.current()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	chunks := make([]models.CorpusChunk, 0, len(snap.chunkIDs))
	for _, id := range snap.chunkIDs {
		chunks = append(chunks, snap.chunks[id])
	}
	if err := writeJSONFile(filepath.Join(dir, chunksFile), chunks); err != nil {
		return err
	}

	documents := make([]models.CorpusDocument, 0, len(snap.documents))
	for _, doc := range snap.documents {
		documents = append(documents, doc)
	}
	sort.Slice(documents, func(i, j int) bool {
		return documents[i].FileID < documents[j].FileID
	})

	meta := metadataEnvelope{
		Documents:   documents,
		Graph:       snap.graph.export(),
		VectorDim:   snap.vectorDim,
		ChunkCount:  len(snap.chunkIDs),
		VectorCount: len(snap.vectors),
		BuiltAt:     snap.builtAt,
	}
	if err := writeJSONFile(filepath.Join(dir, metadataFile), meta); err != nil {
		return err
	}

	return writeJSONFile(filepath.Join(dir, vectorsFile), encodeVectors(snap.vectors, snap.vectorDim))
}

// Load reads the corpus files from dir, builds a snapshot, and swaps it in.
// The metadata and vectors files are optional: chunks alone serve
// keyword-only retrieval. A missing chunks file returns ErrNoCorpus.
func (ix *Index) Load(dir string) error {
	chunksPath := filepath.Join(dir, chunksFile)
	raw, err := os.ReadFile(chunksPath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoCorpus, chunksPath)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", chunksFile, err)
	}
	var chunks []models.CorpusChunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return fmt.Errorf("failed to parse %s: %w", chunksFile, err)
	}

	var meta metadataEnvelope
	raw, err = os.ReadFile(filepath.Join(dir, metadataFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No metadata: documents and graph stay empty.
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", metadataFile, err)
	default:
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("failed to parse %s: %w", metadataFile, err)
		}
	}

	vectors := map[string][]float32{}
	vectorDim := 0
	raw, err = os.ReadFile(filepath.Join(dir, vectorsFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No vectors: retrieval ranks by keyword match alone.
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", vectorsFile, err)
	default:
		var envelope vectorsEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("failed to parse %s: %w", vectorsFile, err)
		}
		vectors, err = decodeVectors(envelope)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", vectorsFile, err)
		}
		if len(vectors) > 0 {
			vectorDim = envelope.Dim
		}
	}

	builtAt := meta.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now().UTC()
	}

	ix.swap(buildSnapshot(chunks, meta.Documents, meta.Graph, vectors, vectorDim, builtAt))
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func encodeVectors(vectors map[string][]float32, dim int) vectorsEnvelope {
	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	buf := make([]byte, 0, len(ids)*dim*4)
	var scratch [4]byte
	for _, id := range ids {
		for _, v := range vectors[id] {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			buf = append(buf, scratch[:]...)
		}
	}

	return vectorsEnvelope{
		Dim:  dim,
		IDs:  ids,
		Data: base64.StdEncoding.EncodeToString(buf),
	}
}

func decodeVectors(envelope vectorsEnvelope) (map[string][]float32, error) {
	vectors := make(map[string][]float32, len(envelope.IDs))
	if len(envelope.IDs) == 0 {
		return vectors, nil
	}
	if envelope.Dim <= 0 {
		return nil, fmt.Errorf("vector file lists %d ids with dimension %d", len(envelope.IDs), envelope.Dim)
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vector data: %w", err)
	}
	want := len(envelope.IDs) * envelope.Dim * 4
	if len(raw) != want {
		return nil, fmt.Errorf("vector data is %d bytes, want %d for %d ids of dim %d",
			len(raw), want, len(envelope.IDs), envelope.Dim)
	}

	for i, id := range envelope.IDs {
		row := make([]float32, envelope.Dim)
		base := i * envelope.Dim * 4
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[base+j*4:]))
		}
		vectors[id] = row
	}
	return vectors, nil
}
