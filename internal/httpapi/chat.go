package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/footnote/backend/internal/agent"
	"github.com/footnote/backend/internal/apperr"
)

type chatRequest struct {
	Message string `json:"message"`
	// Mode selects the tool-using loop ("agentic", the default) or the
	// single-shot path ("standard"), matching the two RAG coroutines.
	Mode string `json:"mode"`
}

// chatWireEvent is the JSON payload carried by each SSE "data:" line,
// shaped to match §4.6's three event kinds exactly: agent_status,
// token, and the terminal done event.
type chatWireEvent struct {
	AgentStatus *chatStatusPayload `json:"agent_status,omitempty"`
	Token       *string            `json:"token,omitempty"`
	Done        bool               `json:"done,omitempty"`

	Citations      map[string]any `json:"citations,omitempty"`
	SearchedFiles  []string       `json:"searched_files,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Iterations     int            `json:"iterations,omitempty"`
}

type chatStatusPayload struct {
	Phase     agent.Phase `json:"phase"`
	Iteration int         `json:"iteration,omitempty"`
	Tool      string      `json:"tool,omitempty"`
}

// handleChat streams one chat turn as Server-Sent Events. The request
// body carries the next user message; the response is a sequence of
// "data: <json>\n\n" lines ending with a done event, per §4.6.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conversationID, err := parseUUIDParam(r, "conversationID")
	if err != nil {
		writeError(w, err)
		return
	}
	conversation, err := s.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.WrapValidation(err, "invalid request body"))
		return
	}
	if req.Message == "" {
		writeError(w, apperr.Validation("message is required"))
		return
	}
	if len(req.Message) > s.maxChatMessageLength {
		writeError(w, apperr.Validation("message exceeds %d characters", s.maxChatMessageLength))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperr.Internal("streaming not supported by this response writer"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	params := agent.Params{
		FolderID:       conversation.FolderID,
		ConversationID: conversationID,
		UserMessage:    req.Message,
	}

	start := time.Now()
	mode := "agentic"
	var events <-chan agent.Event
	if req.Mode == "standard" {
		mode = "standard"
		events = s.agent.RunStandard(r.Context(), params)
	} else {
		events = s.agent.RunAgentic(r.Context(), params)
	}

	iterations := 0
	for ev := range events {
		writeSSE(w, flusher, toWireEvent(ev))
		if ev.Kind == agent.EventDone {
			iterations = ev.Iterations
		}
	}
	s.metrics.RecordAgentTurn(mode, iterations)
	s.metrics.RecordHTTPRequest("/conversations/{conversationID}/chat", "2xx", time.Since(start))
}

func toWireEvent(ev agent.Event) chatWireEvent {
	switch ev.Kind {
	case agent.EventStatus:
		return chatWireEvent{AgentStatus: &chatStatusPayload{Phase: ev.Phase, Iteration: ev.Iteration, Tool: ev.Tool}}
	case agent.EventToken:
		token := ev.Token
		return chatWireEvent{Token: &token}
	default:
		citations := make(map[string]any, len(ev.Citations))
		for k, c := range ev.Citations {
			citations[k] = c
		}
		return chatWireEvent{
			Done:           true,
			Citations:      citations,
			SearchedFiles:  ev.SearchedFiles,
			ConversationID: ev.ConversationID,
			Iterations:     ev.Iterations,
		}
	}
}

// writeSSE writes one "data: ..." frame and flushes immediately so the
// caller's connection is not buffered behind Go's default response
// buffering — the same reason the logging middleware never wraps
// ResponseWriter.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev chatWireEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", body)
	flusher.Flush()
}
