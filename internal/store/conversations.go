package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/model"
)

// CreateConversation inserts a new Conversation under folderID.
func (s *Store) CreateConversation(ctx context.Context, folderID uuid.UUID, title *string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO conversations (folder_id, title) VALUES ($1, $2)
		RETURNING id, folder_id, title, created_at, updated_at`, folderID, title)

	var c model.Conversation
	if err := row.Scan(&c.ID, &c.FolderID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("store: create conversation: %w", err)
	}
	return &c, nil
}

// GetConversation loads a Conversation by id.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, folder_id, title, created_at, updated_at FROM conversations WHERE id = $1`, id)

	var c model.Conversation
	err := row.Scan(&c.ID, &c.FolderID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("conversation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	return &c, nil
}

// ListConversationsForFolder returns every Conversation under folderID,
// most recently updated first.
func (s *Store) ListConversationsForFolder(ctx context.Context, folderID uuid.UUID) ([]*model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, folder_id, title, created_at, updated_at
		FROM conversations WHERE folder_id = $1 ORDER BY updated_at DESC`, folderID)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	var out []*model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.FolderID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan conversation: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ListMessages returns every Message in a Conversation, oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, citations, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m, err := scanMessageRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendMessage persists one turn of a Conversation. Both the user turn
// and the assistant turn (with citations) are appended at their own
// turn boundary, per §4.6's "commits happen at turn boundaries" rule —
// callers call this once per turn, not once per stream event.
func (s *Store) AppendMessage(ctx context.Context, conversationID uuid.UUID, role model.MessageRole, content string, citations map[string]model.Citation) (*model.Message, error) {
	var citationsJSON []byte
	if len(citations) > 0 {
		var err error
		citationsJSON, err = json.Marshal(citations)
		if err != nil {
			return nil, fmt.Errorf("store: marshal citations: %w", err)
		}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, citations)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, role, content, citations, created_at`,
		conversationID, role, content, citationsJSON)

	m, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("store: append message: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE conversations SET updated_at=now() WHERE id=$1`, conversationID)
	return m, err
}

func scanMessage(row *sql.Row) (*model.Message, error) {
	var m model.Message
	var citationsJSON []byte
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &citationsJSON, &m.CreatedAt); err != nil {
		return nil, err
	}
	if len(citationsJSON) > 0 {
		if err := json.Unmarshal(citationsJSON, &m.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
	}
	return &m, nil
}

func scanMessageRows(rows *sql.Rows) (*model.Message, error) {
	var m model.Message
	var citationsJSON []byte
	if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &citationsJSON, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("store: scan message: %w", err)
	}
	if len(citationsJSON) > 0 {
		if err := json.Unmarshal(citationsJSON, &m.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations: %w", err)
		}
	}
	return &m, nil
}
