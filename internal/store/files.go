package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/model"
)

// CreateFile inserts a new File row in Pending status, within execer so
// callers (folder sync) can run it as part of a larger transaction.
func (s *Store) CreateFile(ctx context.Context, execer QueryExecer, folderID uuid.UUID, remoteFileID, name, mimeType string, modifiedTime *time.Time) (*model.File, error) {
	row := execer.QueryRowContext(ctx, `
		INSERT INTO files (folder_id, remote_file_id, name, mime_type, modified_time, index_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, folder_id, remote_file_id, name, mime_type, modified_time, file_preview, index_status, created_at`,
		folderID, remoteFileID, name, mimeType, modifiedTime, model.FilePending)

	f, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("store: create file: %w", err)
	}
	return f, nil
}

// GetFile loads a File by id.
func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*model.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, folder_id, remote_file_id, name, mime_type, modified_time, file_preview, index_status, created_at
		FROM files WHERE id = $1`, id)

	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("file %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get file: %w", err)
	}
	return f, nil
}

// ListFilesForFolder returns every File in folderID, keyed for diffing
// by remote id.
func (s *Store) ListFilesForFolder(ctx context.Context, folderID uuid.UUID) ([]*model.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, folder_id, remote_file_id, name, mime_type, modified_time, file_preview, index_status, created_at
		FROM files WHERE folder_id = $1`, folderID)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", err)
	}
	defer rows.Close()

	var out []*model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.FolderID, &f.RemoteFileID, &f.Name, &f.MimeType, &f.ModifiedTime, &f.Preview, &f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// UpdateFileModified resets a File for re-indexing after the synchronizer
// observes a later remote modifiedTime: clears preview/embedding and
// moves it back to Pending. Chunk deletion happens separately via
// ReplaceChunks when the job actually runs.
func (s *Store) UpdateFileModified(ctx context.Context, execer Execer, id uuid.UUID, modifiedTime time.Time) error {
	_, err := execer.ExecContext(ctx, `
		UPDATE files SET modified_time=$2, file_preview=NULL, file_embedding=NULL, index_status=$3
		WHERE id=$1`, id, modifiedTime, model.FilePending)
	return err
}

// SetFileStatus transitions a File's index_status without touching its
// content, used for the Skipped terminal transition.
func (s *Store) SetFileStatus(ctx context.Context, id uuid.UUID, status model.FileStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE files SET index_status=$2 WHERE id=$1`, id, status)
	return err
}

// SetFileIndexed stores the computed preview and file-level embedding
// and marks the File Indexed, as the first half of §4.1 step 9's atomic
// replace (the chunk half is ReplaceChunks, same transaction).
func (s *Store) SetFileIndexed(ctx context.Context, tx *sql.Tx, id uuid.UUID, preview string, embedding []float32) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE files SET file_preview=$2, file_embedding=$3, index_status=$4 WHERE id=$1`,
		id, preview, nullableVector(embedding), model.FileIndexed)
	return err
}

// DeleteFile removes a File, cascading to its chunks.
func (s *Store) DeleteFile(ctx context.Context, execer Execer, id uuid.UUID) error {
	_, err := execer.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id)
	return err
}

func scanFile(row *sql.Row) (*model.File, error) {
	var f model.File
	err := row.Scan(&f.ID, &f.FolderID, &f.RemoteFileID, &f.Name, &f.MimeType, &f.ModifiedTime, &f.Preview, &f.Status, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
