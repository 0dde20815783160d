// Package model holds the domain entities persisted by internal/store:
// User, Session, Folder, File, Chunk, Location, IndexingJob, FailedTask,
// Conversation, and Message. These are plain structs keyed by
// uuid.UUID — entities reference each other by id, never by pointer, so
// that repository code (internal/store) owns all lifetime decisions.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FolderStatus is the lifecycle state of a Folder's indexing progress.
type FolderStatus string

const (
	FolderPending  FolderStatus = "pending"
	FolderIndexing FolderStatus = "indexing"
	FolderReady    FolderStatus = "ready"
	FolderError    FolderStatus = "error"
)

// FileStatus is the lifecycle state of a single File.
type FileStatus string

const (
	FilePending FileStatus = "pending"
	FileIndexed FileStatus = "indexed"
	FileSkipped FileStatus = "skipped"
	FileFailed  FileStatus = "failed"
)

// JobStatus is the lifecycle state of an IndexingJob.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// MessageRole distinguishes a Message's author.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// User is a stable identity sourced from an external identity provider.
// Created on first successful login; never mutated afterward.
type User struct {
	ID         uuid.UUID
	ExternalID string
	Email      string
	CreatedAt  time.Time
}

// Session carries the encrypted drive credentials for one User. The
// AccessToken/RefreshToken fields hold ciphertext as produced by
// internal/crypto; decrypt lazily at the point of use, never at load
// time, and never log either field.
type Session struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// Expired reports whether the session's access token needs a refresh
// before its next use.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Folder is an indexed remote directory owned by one User.
type Folder struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	RemoteFolderID string
	Name           string
	Status         FolderStatus
	FilesTotal     int
	FilesIndexed   int
	LastSyncedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Ready reports whether every file in the folder reached a terminal
// state and files_indexed accounts for all of them.
func (f *Folder) Ready() bool {
	return f.FilesIndexed == f.FilesTotal
}

// File is a single extractable object inside a Folder.
type File struct {
	ID           uuid.UUID
	FolderID     uuid.UUID
	RemoteFileID string
	Name         string
	MimeType     string
	ModifiedTime *time.Time
	Preview      *string
	Embedding    []float32
	Status       FileStatus
	CreatedAt    time.Time
}

// Chunk is a retrievable text fragment derived from a File. UserID is
// denormalized from the owning Folder so a single-index, multi-tenant
// store can filter retrieval by user without a join.
type Chunk struct {
	ID         uuid.UUID
	FileID     uuid.UUID
	UserID     uuid.UUID
	Text       string
	Embedding  []float32
	Location   Location
	ChunkIndex int
	CreatedAt  time.Time
}

// LocationKind discriminates the Location tagged union.
type LocationKind string

const (
	LocationDoc   LocationKind = "doc"
	LocationPDF   LocationKind = "pdf"
	LocationSheet LocationKind = "sheet"
	LocationImage LocationKind = "image"
)

// ElementType describes the structural role of the block a Location
// points at, where the extractor can tell (doc and pdf locations only).
type ElementType string

const (
	ElementHeading   ElementType = "heading"
	ElementParagraph ElementType = "paragraph"
	ElementList      ElementType = "list"
	ElementTable     ElementType = "table"
)

// Location is a structured descriptor of where a Chunk sits inside its
// file, used for citation rendering only (never for retrieval
// filtering). It round-trips through a jsonb column via MarshalJSON /
// UnmarshalJSON, matching the "duck-typed dict locations become a
// tagged sum type" design note.
type Location struct {
	Kind LocationKind

	// doc
	HeadingPath string
	ParaIndex   int

	// pdf
	Page       int
	BlockIndex int

	// shared by doc/pdf
	ElementType  ElementType
	HeadingLevel int

	// sheet
	SheetName  string
	SheetIndex int

	// split-chunk bookkeeping, shared across kinds
	SubChunk int
}

// locationJSON is the on-the-wire shape for Location; field names match
// the variants in spec rather than the Go field names above, so stored
// rows are self-describing.
type locationJSON struct {
	Kind         LocationKind `json:"kind"`
	HeadingPath  string       `json:"heading_path,omitempty"`
	ParaIndex    int          `json:"para_index,omitempty"`
	Page         int          `json:"page,omitempty"`
	BlockIndex   int          `json:"block_index,omitempty"`
	ElementType  ElementType  `json:"element_type,omitempty"`
	HeadingLevel int          `json:"heading_level,omitempty"`
	SheetName    string       `json:"sheet_name,omitempty"`
	SheetIndex   int          `json:"sheet_index,omitempty"`
	SubChunk     int          `json:"sub_chunk,omitempty"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(locationJSON{
		Kind:         l.Kind,
		HeadingPath:  l.HeadingPath,
		ParaIndex:    l.ParaIndex,
		Page:         l.Page,
		BlockIndex:   l.BlockIndex,
		ElementType:  l.ElementType,
		HeadingLevel: l.HeadingLevel,
		SheetName:    l.SheetName,
		SheetIndex:   l.SheetIndex,
		SubChunk:     l.SubChunk,
	})
}

func (l *Location) UnmarshalJSON(data []byte) error {
	var lj locationJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return fmt.Errorf("model: unmarshal location: %w", err)
	}
	*l = Location{
		Kind:         lj.Kind,
		HeadingPath:  lj.HeadingPath,
		ParaIndex:    lj.ParaIndex,
		Page:         lj.Page,
		BlockIndex:   lj.BlockIndex,
		ElementType:  lj.ElementType,
		HeadingLevel: lj.HeadingLevel,
		SheetName:    lj.SheetName,
		SheetIndex:   lj.SheetIndex,
		SubChunk:     lj.SubChunk,
	}
	return nil
}

// String renders a Location as a human-readable citation label, e.g.
// "Page 3" or "Introduction > Background".
func (l Location) String() string {
	switch l.Kind {
	case LocationPDF:
		if l.Page > 0 {
			return fmt.Sprintf("Page %d", l.Page)
		}
	case LocationDoc:
		if l.HeadingPath != "" {
			return l.HeadingPath
		}
	case LocationSheet:
		if l.SheetName != "" {
			return l.SheetName
		}
	}
	if l.ParaIndex > 0 {
		return fmt.Sprintf("Section %d", l.ParaIndex+1)
	}
	return "Document"
}

// IndexingJob is one queued unit of ingest work. At most one non-terminal
// job exists per File at a time.
type IndexingJob struct {
	ID          uuid.UUID
	FolderID    uuid.UUID
	FileID      uuid.UUID
	Status      JobStatus
	Priority    int
	Attempts    int
	MaxAttempts int
	LastError   *string
	RetryAfter  *time.Time
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// FailedTask is a DLQ entry: a task that exhausted retries or failed
// permanently. Resolved manually; never auto-deleted.
type FailedTask struct {
	ID               uuid.UUID
	UpstreamTaskID   uuid.UUID
	TaskName         string
	Args             json.RawMessage
	ExceptionType    string
	Message          string
	TracebackExcerpt string
	Retries          int
	FailedAt         time.Time
	ResolvedAt       *time.Time
	ResolutionNotes  *string
}

// Conversation groups Messages under one Folder.
type Conversation struct {
	ID        uuid.UUID
	FolderID  uuid.UUID
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Citation is one entry of a Message's numbered citation map.
type Citation struct {
	ChunkID   uuid.UUID `json:"chunk_id"`
	FileName  string    `json:"file_name"`
	Location  string    `json:"location"`
	Excerpt   string    `json:"excerpt"`
	SourceURL string    `json:"source_url"`
}

// Message is one turn of a Conversation. Citations maps stringified
// citation numbers ("1", "2", ...) to the chunk they resolved to.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           MessageRole
	Content        string
	Citations      map[string]Citation
	CreatedAt      time.Time
}
