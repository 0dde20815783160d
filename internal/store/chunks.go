package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/model"
)

// ReplaceChunks atomically deletes a File's existing chunks and
// bulk-inserts newChunks, inside tx so readers always see the old set
// or the new set, never a partial one (§5's shared-resource policy,
// §9's single-transaction-replace resolution). Chunk indices must
// already be assigned 0..N-1 in emission order.
func ReplaceChunks(ctx context.Context, tx *sql.Tx, fileID, userID uuid.UUID, newChunks []model.Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("store: delete chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (file_id, user_id, chunk_text, chunk_embedding, search_vector, location, chunk_index)
		VALUES ($1, $2, $3, $4, to_tsvector('english', $3), $5, $6)`)
	if err != nil {
		return fmt.Errorf("store: prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range newChunks {
		locJSON, err := json.Marshal(c.Location)
		if err != nil {
			return fmt.Errorf("store: marshal chunk location: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, fileID, userID, c.Text, nullableVector(c.Embedding), locJSON, c.ChunkIndex); err != nil {
			return fmt.Errorf("store: insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// GetChunksForFile returns a File's chunks ordered by chunk_index.
func (s *Store) GetChunksForFile(ctx context.Context, fileID uuid.UUID) ([]*model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, user_id, chunk_text, location, chunk_index, created_at
		FROM chunks WHERE file_id = $1 ORDER BY chunk_index ASC`, fileID)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks for file: %w", err)
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// GetChunksByID loads chunks by id, in no particular order; callers
// that need ordering (e.g. matching a numbered citation list) should
// re-sort against their own index.
func (s *Store) GetChunksByID(ctx context.Context, ids []uuid.UUID) ([]*model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT id, file_id, user_id, chunk_text, location, chunk_index, created_at
		FROM chunks WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks by id: %w", err)
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func scanChunkRows(rows *sql.Rows) ([]*model.Chunk, error) {
	var out []*model.Chunk
	for rows.Next() {
		var c model.Chunk
		var locJSON []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.UserID, &c.Text, &locJSON, &c.ChunkIndex, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		if err := json.Unmarshal(locJSON, &c.Location); err != nil {
			return nil, fmt.Errorf("store: unmarshal chunk location: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
