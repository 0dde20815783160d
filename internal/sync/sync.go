// Package sync implements the diff-based folder synchronizer: compare a
// Folder's stored File rows against its remote listing and queue the
// difference for re-indexing, throttled to at most once per interval.
// Grounded on services/folder_sync.py.
package sync

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/drive"
	"github.com/footnote/backend/internal/model"
	"github.com/footnote/backend/internal/store"
)

// Interval is the minimum gap between two syncs of the same folder,
// matching SYNC_INTERVAL.
const Interval = time.Hour

// Result reports what a sync did, or why it didn't run.
type Result struct {
	Synced   bool
	Reason   string // set when !Synced: "recent_sync", "folder_not_found", "permission_denied", "rate_limited", "api_error"
	Added    int
	Modified int
	Deleted  int
}

// Synchronizer diffs a Folder against its remote listing and applies
// the difference.
type Synchronizer struct {
	store *store.Store
	drive drive.SourceDrive
}

// New builds a Synchronizer over st and d.
func New(st *store.Store, d drive.SourceDrive) *Synchronizer {
	return &Synchronizer{store: st, drive: d}
}

// SyncIfNeeded runs a diff-sync for folder unless it was synced within
// Interval, mirroring sync_folder_if_needed's throttle-then-diff flow.
func (s *Synchronizer) SyncIfNeeded(ctx context.Context, folder *model.Folder, accessToken string, now time.Time) (Result, error) {
	if folder.LastSyncedAt != nil && now.Sub(*folder.LastSyncedAt) < Interval {
		return Result{Synced: false, Reason: "recent_sync"}, nil
	}

	remoteFiles, err := s.listAll(ctx, accessToken, folder.RemoteFolderID)
	if err != nil {
		return s.classifyListErr(ctx, folder.ID, err)
	}

	storedFiles, err := s.store.ListFilesForFolder(ctx, folder.ID)
	if err != nil {
		return Result{}, apperr.WrapTransient(err, "sync: list stored files")
	}

	diff := diffFiles(remoteFiles, storedFiles)

	var result Result
	err = s.store.WithTx(ctx, func(tx *sql.Tx) error {
		return s.applyChanges(ctx, tx, folder.ID, diff)
	})
	if err != nil {
		return Result{}, apperr.WrapTransient(err, "sync: apply changes")
	}

	if err := s.store.SetFolderLastSynced(ctx, s.store.DB(), folder.ID, len(remoteFiles), now); err != nil {
		return Result{}, apperr.WrapTransient(err, "sync: set last synced")
	}

	result = Result{
		Synced:   true,
		Added:    len(diff.added),
		Modified: len(diff.modified),
		Deleted:  len(diff.deleted),
	}
	return result, nil
}

// listAll pages through ListFiles until the drive stops returning a
// next page token, matching _list_drive_folder_async.
func (s *Synchronizer) listAll(ctx context.Context, accessToken, remoteFolderID string) ([]drive.FileMeta, error) {
	var all []drive.FileMeta
	pageToken := ""
	for {
		files, next, err := s.drive.ListFiles(ctx, accessToken, remoteFolderID, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
		if next == "" {
			break
		}
		pageToken = next
	}
	return all, nil
}

// classifyListErr maps a drive listing failure onto sync_folder_if_needed's
// HttpError branches: 404 marks the folder Error and stops syncing it
// again until fixed, 403/429/other just report why nothing happened.
func (s *Synchronizer) classifyListErr(ctx context.Context, folderID uuid.UUID, err error) (Result, error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		return Result{Synced: false, Reason: "error"}, nil
	}
	switch kind {
	case apperr.KindNotFound:
		if setErr := s.store.SetFolderStatus(ctx, folderID, model.FolderError); setErr != nil {
			return Result{}, apperr.WrapTransient(setErr, "sync: mark folder error")
		}
		return Result{Synced: false, Reason: "folder_not_found"}, nil
	case apperr.KindAuth:
		return Result{Synced: false, Reason: "permission_denied"}, nil
	case apperr.KindTransient:
		return Result{Synced: false, Reason: "rate_limited"}, nil
	default:
		return Result{Synced: false, Reason: "api_error"}, nil
	}
}

type diffSet struct {
	added    []drive.FileMeta
	modified []modifiedPair
	deleted  []*model.File
}

type modifiedPair struct {
	remote drive.FileMeta
	stored *model.File
}

// diffFiles computes the added/modified/deleted sets, keyed by remote
// file id, matching sync_folder_if_needed's dict-diff.
func diffFiles(remote []drive.FileMeta, stored []*model.File) diffSet {
	storedByRemoteID := make(map[string]*model.File, len(stored))
	for _, f := range stored {
		storedByRemoteID[f.RemoteFileID] = f
	}

	remoteIDs := make(map[string]bool, len(remote))
	var diff diffSet

	for _, rf := range remote {
		remoteIDs[rf.ID] = true
		sf, exists := storedByRemoteID[rf.ID]
		if !exists {
			diff.added = append(diff.added, rf)
			continue
		}
		if rf.ModifiedTime != nil && (sf.ModifiedTime == nil || rf.ModifiedTime.After(*sf.ModifiedTime)) {
			diff.modified = append(diff.modified, modifiedPair{remote: rf, stored: sf})
		}
	}

	for _, sf := range stored {
		if !remoteIDs[sf.RemoteFileID] {
			diff.deleted = append(diff.deleted, sf)
		}
	}

	return diff
}

// applyChanges performs the three change classes inside tx, matching
// _apply_sync_changes: delete removed files, insert+enqueue added
// files, and reset+re-enqueue modified files (only if no job already
// tracks them).
func (s *Synchronizer) applyChanges(ctx context.Context, tx *sql.Tx, folderID uuid.UUID, diff diffSet) error {
	for _, f := range diff.deleted {
		if err := s.store.DeleteFile(ctx, tx, f.ID); err != nil {
			return err
		}
	}

	for _, rf := range diff.added {
		file, err := s.store.CreateFile(ctx, tx, folderID, rf.ID, rf.Name, rf.MimeType, rf.ModifiedTime)
		if err != nil {
			return err
		}
		if err := s.store.EnqueueJob(ctx, tx, folderID, file.ID, 0); err != nil {
			return err
		}
	}

	for _, mp := range diff.modified {
		if err := s.store.UpdateFileModified(ctx, tx, mp.stored.ID, *mp.remote.ModifiedTime); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = $1`, mp.stored.ID); err != nil {
			return err
		}
		hasJob, err := s.store.HasActiveJob(ctx, tx, mp.stored.ID)
		if err != nil {
			return err
		}
		if !hasJob {
			if err := s.store.EnqueueJob(ctx, tx, folderID, mp.stored.ID, 0); err != nil {
				return err
			}
		}
	}

	return nil
}
