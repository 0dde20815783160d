// Package drive defines the SourceDrive capability consumed by the
// folder synchronizer and the extraction pipeline, plus a
// Google-Drive-shaped REST adapter (GoogleDrive) built on
// internal/httpclient.
package drive

import (
	"context"
	"time"
)

// FileMeta describes one remote file as the synchronizer and extractors
// see it — never a full domain model.File, since a drive has no concept
// of index_status or chunking.
type FileMeta struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime *time.Time
	Size         int64
}

// SourceDrive is the capability every folder-scoped drive operation goes
// through. Implementations must map upstream 404/403/429 to
// apperr.NotFound / apperr.Auth / apperr.Transient respectively so the
// synchronizer's folder_not_found/permission_denied/rate_limited mapping
// works regardless of which drive backs it.
type SourceDrive interface {
	// ListFiles lists the direct children of folderID, paginating via
	// pageToken until the returned nextToken is "".
	ListFiles(ctx context.Context, accessToken, folderID, pageToken string) (files []FileMeta, nextToken string, err error)

	// GetFileMetadata fetches a single file's current metadata.
	GetFileMetadata(ctx context.Context, accessToken, fileID string) (FileMeta, error)

	// ExportAs renders a doc-like file (e.g. a Google Doc) to mimeType,
	// returning the exported payload as text.
	ExportAs(ctx context.Context, accessToken, fileID, mimeType string) (string, error)

	// Download fetches the raw bytes of a file (PDF, image, binary
	// upload, or a spreadsheet export).
	Download(ctx context.Context, accessToken, fileID string) ([]byte, error)
}
