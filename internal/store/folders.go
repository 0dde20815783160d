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

// CreateFolder inserts a new Folder for userID pointing at remoteFolderID.
func (s *Store) CreateFolder(ctx context.Context, userID uuid.UUID, remoteFolderID, name string) (*model.Folder, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO folders (user_id, remote_folder_id, name, index_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, remote_folder_id, name, index_status, files_total, files_indexed, last_synced_at, created_at, updated_at`,
		userID, remoteFolderID, name, model.FolderPending)

	return scanFolder(row)
}

// GetFolder loads a Folder by id.
func (s *Store) GetFolder(ctx context.Context, id uuid.UUID) (*model.Folder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, remote_folder_id, name, index_status, files_total, files_indexed, last_synced_at, created_at, updated_at
		FROM folders WHERE id = $1`, id)

	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("folder %s not found", id)
	}
	return f, err
}

// ListFoldersForUser returns every Folder owned by userID.
func (s *Store) ListFoldersForUser(ctx context.Context, userID uuid.UUID) ([]*model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, remote_folder_id, name, index_status, files_total, files_indexed, last_synced_at, created_at, updated_at
		FROM folders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list folders: %w", err)
	}
	defer rows.Close()

	var out []*model.Folder
	for rows.Next() {
		f, err := scanFolderRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFolder deletes a Folder, cascading to its files/chunks/conversations.
func (s *Store) DeleteFolder(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id=$1`, id)
	return err
}

// SetFolderStatus sets a Folder's index_status directly, used for the
// Error transition on a sync upstream failure.
func (s *Store) SetFolderStatus(ctx context.Context, id uuid.UUID, status model.FolderStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE folders SET index_status=$2, updated_at=now() WHERE id=$1`, id, status)
	return err
}

// SetFolderLastSynced records a successful sync timestamp and the total
// file count observed remotely, per §4.2's "commit atomically with the
// changes" requirement (the caller wraps this in the same transaction
// as its diff writes via WithTx).
func (s *Store) SetFolderLastSynced(ctx context.Context, execer Execer, id uuid.UUID, filesTotal int, syncedAt time.Time) error {
	_, err := execer.ExecContext(ctx, `
		UPDATE folders SET files_total=$2, last_synced_at=$3, updated_at=now() WHERE id=$1`,
		id, filesTotal, syncedAt)
	return err
}

// RefreshFolderProgress recomputes files_indexed from the files table
// and sets index_status to Ready iff every file reached a terminal
// status and the counts match, per §4.1 step 10. This is intentionally
// a non-transactional aggregate (§5's shared-resource policy allows
// eventual consistency here).
func (s *Store) RefreshFolderProgress(ctx context.Context, folderID uuid.UUID) error {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE index_status IN ('indexed','skipped')),
			count(*)
		FROM files WHERE folder_id = $1`, folderID)

	var indexed, total int
	if err := row.Scan(&indexed, &total); err != nil {
		return fmt.Errorf("store: refresh folder progress: %w", err)
	}

	status := model.FolderIndexing
	if total > 0 && indexed == total {
		status = model.FolderReady
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE folders SET files_indexed=$2, index_status=$3, updated_at=now() WHERE id=$1`,
		folderID, indexed, status)
	return err
}

func scanFolder(row *sql.Row) (*model.Folder, error) {
	var f model.Folder
	err := row.Scan(&f.ID, &f.UserID, &f.RemoteFolderID, &f.Name, &f.Status, &f.FilesTotal, &f.FilesIndexed, &f.LastSyncedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFolderRows(rows *sql.Rows) (*model.Folder, error) {
	var f model.Folder
	err := rows.Scan(&f.ID, &f.UserID, &f.RemoteFolderID, &f.Name, &f.Status, &f.FilesTotal, &f.FilesIndexed, &f.LastSyncedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: scan folder: %w", err)
	}
	return &f, nil
}
