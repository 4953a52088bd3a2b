package index

import (
	"math"
	"sort"
)

// keywordBoost multiplies the cosine score when any query token matches the
// chunk's tokens.
const keywordBoost = 1.2

// Search runs a hybrid query against the live snapshot.
//
// Candidates are the facet-filter intersection, narrowed to chunks matching
// at least one query token when the query has tokens. Scoring: cosine
// similarity against queryVec, boosted by keywordBoost on a token match;
// with no query vector the score is the distinct-token match count. Results
// are the top k by score descending, ties broken by chunk id ascending.
func (ix *Index) Search(query string, filters map[string]string, k int, queryVec []float32) []ScoredChunk {
	if k <= 0 {
		return nil
	}
	snap := ix.current()
	if len(snap.chunks) == 0 {
		return nil
	}

	queryTokens := tokenSet(query)
	candidates := snap.candidateIDs(filters, queryTokens)
	if len(candidates) == 0 {
		return nil
	}

	hits := make([]ScoredChunk, 0, len(candidates))
	for _, id := range candidates {
		chunk := snap.chunks[id]
		matches := snap.tokenMatches(id, queryTokens)

		var score float64
		if len(queryVec) > 0 {
			score = cosine(queryVec, snap.vectors[id])
			if matches > 0 {
				score *= keywordBoost
			}
		} else {
			score = float64(matches)
		}

		hits = append(hits, ScoredChunk{
			Chunk:    chunk,
			Document: snap.documents[chunk.FileID],
			Score:    score,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkID < hits[j].Chunk.ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Similar returns the k chunks nearest to the given chunk's vector,
// excluding the chunk itself. Without vectors it returns nothing.
func (ix *Index) Similar(chunkID string, k int) []ScoredChunk {
	if k <= 0 {
		return nil
	}
	snap := ix.current()
	base, ok := snap.vectors[chunkID]
	if !ok || len(base) == 0 {
		return nil
	}

	hits := make([]ScoredChunk, 0, len(snap.chunkIDs))
	for _, id := range snap.chunkIDs {
		if id == chunkID {
			continue
		}
		vec, ok := snap.vectors[id]
		if !ok {
			continue
		}
		chunk := snap.chunks[id]
		hits = append(hits, ScoredChunk{
			Chunk:    chunk,
			Document: snap.documents[chunk.FileID],
			Score:    cosine(base, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ChunkID < hits[j].Chunk.ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// candidateIDs intersects the facet filters, then requires at least one
// token match when query tokens exist. Returned ids are sorted.
func (s *snapshot) candidateIDs(filters map[string]string, queryTokens map[string]struct{}) []string {
	var pool map[string]struct{}

	for field, value := range filters {
		ids := s.facets[field][value]
		if len(ids) == 0 {
			return nil
		}
		pool = intersect(pool, ids)
		if len(pool) == 0 {
			return nil
		}
	}

	if len(queryTokens) > 0 {
		matched := make(map[string]struct{})
		for token := range queryTokens {
			for id := range s.inverted[token] {
				matched[id] = struct{}{}
			}
		}
		pool = intersect(pool, matched)
		if len(pool) == 0 {
			return nil
		}
	}

	if pool == nil {
		// No filters and no tokens: every chunk is a candidate.
		return s.chunkIDs
	}

	ids := make([]string, 0, len(pool))
	for id := range pool {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// tokenMatches counts distinct query tokens appearing in the chunk.
func (s *snapshot) tokenMatches(chunkID string, queryTokens map[string]struct{}) int {
	count := 0
	for token := range queryTokens {
		if _, ok := s.inverted[token][chunkID]; ok {
			count++
		}
	}
	return count
}

// intersect returns a ∩ b; a nil a means "unconstrained" and yields b.
func intersect(a, b map[string]struct{}) map[string]struct{} {
	if a == nil {
		out := make(map[string]struct{}, len(b))
		for id := range b {
			out[id] = struct{}{}
		}
		return out
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	out := make(map[string]struct{})
	for id := range small {
		if _, ok := large[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// cosine returns the cosine similarity of two vectors, 0 on dimension
// mismatch or zero norms.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
