package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceMetadata carries traceability fields for one retrieved source.
type SourceMetadata struct {
	EnactedDate string  `json:"enacted_date,omitempty"`
	Chapter     string  `json:"chapter,omitempty"`
	Score       float64 `json:"score"`
	ChunkID     string  `json:"chunk_id"`
}

// LegalSource is the retrieval atom: one verbatim passage of law.
// Text is byte-identical to the corpus chunk it came from.
// Two sources are equal iff (law_name, section) match.
type LegalSource struct {
	LawName  string         `json:"law_name"`
	Section  string         `json:"section"`
	Text     string         `json:"text"`
	Metadata SourceMetadata `json:"metadata"`
}

// CitationKey returns the canonical citation identifier for this source,
// e.g. "Penal Code of Sri Lanka - Section 299".
func (s LegalSource) CitationKey() string {
	return fmt.Sprintf("%s - Section %s", s.LawName, s.Section)
}

// Equal reports whether two sources cite the same provision.
func (s LegalSource) Equal(other LegalSource) bool {
	return strings.EqualFold(s.LawName, other.LawName) && strings.EqualFold(s.Section, other.Section)
}

// RetrievalStatus distinguishes a successful retrieval from an empty one.
type RetrievalStatus string

const (
	RetrievalStatusSuccess RetrievalStatus = "success"
	RetrievalStatusEmpty   RetrievalStatus = "empty"
)

// IsValid checks if the retrieval status is valid
func (s RetrievalStatus) IsValid() bool {
	return s == RetrievalStatusSuccess || s == RetrievalStatusEmpty
}

// RetrievalResult is the ordered outcome of one corpus query.
// Sources are ordered by hybrid score descending; ties broken by section
// lexicographic order, then chunk id.
type RetrievalResult struct {
	Sources     []LegalSource   `json:"sources"`
	IssuedQuery string          `json:"issued_query"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      RetrievalStatus `json:"status"`

	// Warning notes a degradation (queue overflow, transport failure) for
	// the audit trail. Never serialized into user-facing output.
	Warning string `json:"-"`
}

// Empty reports whether the retrieval returned no sources.
func (r RetrievalResult) Empty() bool {
	return len(r.Sources) == 0
}

// CitationKeys returns the citation identifiers of all retrieved sources,
// in retrieval order.
func (r RetrievalResult) CitationKeys() []string {
	keys := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		keys = append(keys, s.CitationKey())
	}
	return keys
}
