package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footnote/backend/internal/drive"
	"github.com/footnote/backend/internal/model"
)

func TestDiffFiles_AddedModifiedDeleted(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	unchangedID := uuid.New()
	modifiedID := uuid.New()
	deletedID := uuid.New()

	remote := []drive.FileMeta{
		{ID: "unchanged", Name: "a", MimeType: "text/plain", ModifiedTime: &older},
		{ID: "modified", Name: "b", MimeType: "text/plain", ModifiedTime: &newer},
		{ID: "new", Name: "c", MimeType: "text/plain", ModifiedTime: &older},
	}
	stored := []*model.File{
		{ID: unchangedID, RemoteFileID: "unchanged", ModifiedTime: &older},
		{ID: modifiedID, RemoteFileID: "modified", ModifiedTime: &older},
		{ID: deletedID, RemoteFileID: "gone"},
	}

	diff := diffFiles(remote, stored)

	require.Len(t, diff.added, 1)
	assert.Equal(t, "new", diff.added[0].ID)

	require.Len(t, diff.modified, 1)
	assert.Equal(t, modifiedID, diff.modified[0].stored.ID)
	assert.Equal(t, "modified", diff.modified[0].remote.ID)

	require.Len(t, diff.deleted, 1)
	assert.Equal(t, deletedID, diff.deleted[0].ID)
}

func TestDiffFiles_NoModifiedTimeLeavesFileUntouched(t *testing.T) {
	remote := []drive.FileMeta{{ID: "f1", Name: "a", MimeType: "text/plain", ModifiedTime: nil}}
	stored := []*model.File{{ID: uuid.New(), RemoteFileID: "f1", ModifiedTime: nil}}

	diff := diffFiles(remote, stored)

	assert.Empty(t, diff.added)
	assert.Empty(t, diff.modified)
	assert.Empty(t, diff.deleted)
}
