// Package httpapi implements the public HTTP surface: folder
// list/create/get/delete, sync trigger, conversation list/get, chunk
// context lookup, and the chat SSE endpoint. Grounded on pkg/server/
// http.go's router-construction and middleware shape (CORS,
// Flusher-preserving logging middleware), adapted from chi's a2a
// JSON-RPC routing to a conventional REST + SSE surface per §6.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/footnote/backend/internal/agent"
	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/auth"
	"github.com/footnote/backend/internal/metrics"
	"github.com/footnote/backend/internal/model"
	"github.com/footnote/backend/internal/store"
	"github.com/footnote/backend/internal/sync"
)

// Server wires chi routes over the domain collaborators. It holds no
// per-request state; every handler is a method taking the request's own
// context.
type Server struct {
	store    *store.Store
	sync     *sync.Synchronizer
	agent    *agent.Agent
	sessions *auth.SessionResolver
	metrics  *metrics.Metrics
	log      *slog.Logger

	maxChatMessageLength int
	maxTitleLength       int
}

// Config bundles Server's collaborators and request-validation limits.
type Config struct {
	Store                *store.Store
	Sync                 *sync.Synchronizer
	Agent                *agent.Agent
	Sessions             *auth.SessionResolver
	Metrics              *metrics.Metrics
	Logger               *slog.Logger
	MaxChatMessageLength int
	MaxTitleLength       int
}

// New builds a Server from cfg.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	maxMsg := cfg.MaxChatMessageLength
	if maxMsg <= 0 {
		maxMsg = 32000
	}
	maxTitle := cfg.MaxTitleLength
	if maxTitle <= 0 {
		maxTitle = 255
	}
	return &Server{
		store:                cfg.Store,
		sync:                 cfg.Sync,
		agent:                cfg.Agent,
		sessions:             cfg.Sessions,
		metrics:              cfg.Metrics,
		log:                  log,
		maxChatMessageLength: maxMsg,
		maxTitleLength:       maxTitle,
	}
}

// Router builds the chi router exposing every in-scope endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { s.metrics.Handler().ServeHTTP(w, r) })
	}

	r.Route("/folders", func(r chi.Router) {
		r.Get("/", s.handleListFolders)
		r.Post("/", s.handleCreateFolder)
		r.Route("/{folderID}", func(r chi.Router) {
			r.Get("/", s.handleGetFolder)
			r.Delete("/", s.handleDeleteFolder)
			r.Get("/status", s.handleGetFolder)
			r.Post("/sync", s.handleSyncFolder)
			r.Get("/conversations", s.handleListConversations)
			r.Post("/conversations", s.handleCreateConversation)
			r.Get("/chunks/{chunkID}", s.handleGetChunkContext)
		})
	})

	r.Route("/conversations/{conversationID}", func(r chi.Router) {
		r.Get("/", s.handleGetConversation)
		r.Post("/chat", s.handleChat)
	})

	return r
}

// corsMiddleware allows cross-origin calls from a browser client,
// matching HTTPServer.corsMiddleware's permissive-default shape.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs request completions without wrapping
// ResponseWriter, so http.Flusher still works for the chat SSE handler —
// the same constraint pkg/server/http.go's loggingMiddleware documents.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", duration)
		s.metrics.RecordHTTPRequest(routeLabel(r), "2xx", duration)
	})
}

func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return r.URL.Path
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an apperr.Kind to the status codes §7 specifies.
func writeError(w http.ResponseWriter, err error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindAuth:
		status = http.StatusUnauthorized
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindTransient:
		status = http.StatusServiceUnavailable
	case apperr.KindPermanent:
		status = http.StatusUnprocessableEntity
	case apperr.KindInternal:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

type errorBody struct {
	Error string `json:"error"`
}

// parseUUIDParam reads and parses a chi URL param, returning a
// validation error on a malformed UUID rather than a 404 — matching §7's
// "bad UUID" ValidationError class.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	v := chi.URLParam(r, name)
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.UUID{}, apperr.WrapValidation(err, "invalid %s", name)
	}
	return id, nil
}

func folderDTO(f *model.Folder) map[string]any {
	return map[string]any{
		"id":               f.ID,
		"remote_folder_id": f.RemoteFolderID,
		"name":             f.Name,
		"status":           f.Status,
		"files_total":      f.FilesTotal,
		"files_indexed":    f.FilesIndexed,
		"last_synced_at":   f.LastSyncedAt,
		"ready":            f.Ready(),
		"created_at":       f.CreatedAt,
	}
}

func conversationDTO(c *model.Conversation) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"folder_id":  c.FolderID,
		"title":      c.Title,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

func messageDTO(m *model.Message) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"role":       m.Role,
		"content":    m.Content,
		"citations":  m.Citations,
		"created_at": m.CreatedAt,
	}
}
