package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/model"
)

// SearchHit is one candidate chunk surfaced by VectorSearch or
// KeywordSearch, carrying the file metadata internal/retrieve needs for
// recency scoring and citation display without a second round trip.
type SearchHit struct {
	ChunkID      uuid.UUID
	FileID       uuid.UUID
	FileName     string
	RemoteFileID string
	Text         string
	Location     model.Location
	FileUpdated  *time.Time

	// Score is the signal-specific score: cosine similarity (0-1) for
	// VectorSearch, normalized ts_rank (0-1) for KeywordSearch.
	Score float64
}

// VectorSearch ranks a folder's chunks by cosine distance to
// queryEmbedding using pgvector's <=> operator, matching
// hybrid_search.py's vector_search_with_scores.
func (s *Store) VectorSearch(ctx context.Context, folderID uuid.UUID, queryEmbedding []float32, topK int) ([]SearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.id, c.file_id, c.chunk_text, c.location,
			f.name, f.remote_file_id, f.modified_time,
			1 - (c.chunk_embedding <=> CAST($1 AS vector)) AS similarity
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE f.folder_id = $2 AND c.chunk_embedding IS NOT NULL
		ORDER BY c.chunk_embedding <=> CAST($1 AS vector)
		LIMIT $3`, formatVector(queryEmbedding), folderID, topK)
	if err != nil {
		return nil, fmt.Errorf("store: vector search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var locJSON []byte
		if err := rows.Scan(&h.ChunkID, &h.FileID, &h.Text, &locJSON, &h.FileName, &h.RemoteFileID, &h.FileUpdated, &h.Score); err != nil {
			return nil, fmt.Errorf("store: scan vector hit: %w", err)
		}
		if err := json.Unmarshal(locJSON, &h.Location); err != nil {
			return nil, fmt.Errorf("store: unmarshal vector hit location: %w", err)
		}
		if h.Score < 0 {
			h.Score = 0
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// KeywordSearch ranks a folder's chunks by ts_rank against an
// OR-joined websearch_to_tsquery, normalizing scores to 0-1 by the
// batch's own maximum, matching hybrid_search.py's keyword_search.
func (s *Store) KeywordSearch(ctx context.Context, folderID uuid.UUID, orQuery string, topK int) ([]SearchHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.id, c.file_id, c.chunk_text, c.location,
			f.name, f.remote_file_id, f.modified_time,
			ts_rank(c.search_vector, websearch_to_tsquery('english', $1)) AS rank
		FROM chunks c
		JOIN files f ON c.file_id = f.id
		WHERE f.folder_id = $2
		  AND c.search_vector @@ websearch_to_tsquery('english', $1)
		ORDER BY rank DESC
		LIMIT $3`, orQuery, folderID, topK)
	if err != nil {
		return nil, fmt.Errorf("store: keyword search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	var maxRank float64
	for rows.Next() {
		var h SearchHit
		var locJSON []byte
		if err := rows.Scan(&h.ChunkID, &h.FileID, &h.Text, &locJSON, &h.FileName, &h.RemoteFileID, &h.FileUpdated, &h.Score); err != nil {
			return nil, fmt.Errorf("store: scan keyword hit: %w", err)
		}
		if err := json.Unmarshal(locJSON, &h.Location); err != nil {
			return nil, fmt.Errorf("store: unmarshal keyword hit location: %w", err)
		}
		if h.Score > maxRank {
			maxRank = h.Score
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if maxRank == 0 {
		maxRank = 1.0
	}
	for i := range hits {
		hits[i].Score /= maxRank
	}
	return hits, nil
}
