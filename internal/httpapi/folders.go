package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
)

type createFolderRequest struct {
	UserID         uuid.UUID `json:"user_id"`
	RemoteFolderID string    `json:"remote_folder_id"`
	Name           string    `json:"name"`
}

// handleListFolders lists every Folder for the user named in the
// ?user_id= query param. Authentication/session-to-user resolution is
// an out-of-scope collaborator per §6; callers are trusted to supply
// their own verified user id here.
func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, apperr.WrapValidation(err, "invalid user_id"))
		return
	}
	folders, err := s.store.ListFoldersForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, len(folders))
	for i, f := range folders {
		out[i] = folderDTO(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.WrapValidation(err, "invalid request body"))
		return
	}
	if req.RemoteFolderID == "" || req.Name == "" {
		writeError(w, apperr.Validation("remote_folder_id and name are required"))
		return
	}
	folder, err := s.store.CreateFolder(r.Context(), req.UserID, req.RemoteFolderID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, folderDTO(folder))
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "folderID")
	if err != nil {
		writeError(w, err)
		return
	}
	folder, err := s.store.GetFolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folderDTO(folder))
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "folderID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteFolder(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type syncResponse struct {
	Synced   bool   `json:"synced"`
	Reason   string `json:"reason,omitempty"`
	Added    int    `json:"added"`
	Modified int    `json:"modified"`
	Deleted  int    `json:"deleted"`
}

// handleSyncFolder triggers a diff-sync against the folder's remote
// listing, throttled to at most once per sync.Interval. The caller's
// access token for the folder owner is resolved the same way the
// ingest worker resolves it, via internal/auth.SessionResolver.
func (s *Server) handleSyncFolder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "folderID")
	if err != nil {
		writeError(w, err)
		return
	}
	folder, err := s.store.GetFolder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	_, accessToken, err := s.sessions.Resolve(r.Context(), folder.ID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.sync.SyncIfNeeded(r.Context(), folder, accessToken, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{
		Synced:   result.Synced,
		Reason:   result.Reason,
		Added:    result.Added,
		Modified: result.Modified,
		Deleted:  result.Deleted,
	})
}

// handleGetChunkContext returns a single Chunk's full text alongside its
// immediate neighbors in the same file, for the "jump to source" reader
// view — the caller already has the chunk id from a citation.
func (s *Server) handleGetChunkContext(w http.ResponseWriter, r *http.Request) {
	chunkID, err := parseUUIDParam(r, "chunkID")
	if err != nil {
		writeError(w, err)
		return
	}
	chunks, err := s.store.GetChunksByID(r.Context(), []uuid.UUID{chunkID})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(chunks) == 0 {
		writeError(w, apperr.NotFound("chunk %s not found", chunkID))
		return
	}
	target := chunks[0]

	siblings, err := s.store.GetChunksForFile(r.Context(), target.FileID)
	if err != nil {
		writeError(w, err)
		return
	}

	const window = 1
	var out []map[string]any
	for _, c := range siblings {
		if c.ChunkIndex < target.ChunkIndex-window || c.ChunkIndex > target.ChunkIndex+window {
			continue
		}
		out = append(out, map[string]any{
			"id":          c.ID,
			"chunk_index": c.ChunkIndex,
			"text":        c.Text,
			"location":    c.Location.String(),
			"is_target":   c.ID == target.ID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": out})
}
