package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/footnote/backend/internal/apperr"
)

type createConversationRequest struct {
	Title *string `json:"title"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	folderID, err := parseUUIDParam(r, "folderID")
	if err != nil {
		writeError(w, err)
		return
	}
	conversations, err := s.store.ListConversationsForFolder(r.Context(), folderID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, len(conversations))
	for i, c := range conversations {
		out[i] = conversationDTO(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	folderID, err := parseUUIDParam(r, "folderID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req createConversationRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Title != nil && len(*req.Title) > s.maxTitleLength {
		writeError(w, apperr.Validation("title exceeds %d characters", s.maxTitleLength))
		return
	}
	conversation, err := s.store.CreateConversation(r.Context(), folderID, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversationDTO(conversation))
}

// handleGetConversation returns a conversation and its full message
// history, most recent last.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}
	conversation, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	messages, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := conversationDTO(conversation)
	msgs := make([]map[string]any, len(messages))
	for i, m := range messages {
		msgs[i] = messageDTO(m)
	}
	out["messages"] = msgs
	writeJSON(w, http.StatusOK, out)
}
