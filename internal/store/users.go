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

// CreateUser inserts a new User, or returns the existing one if
// externalID is already known — login is idempotent per spec.md's
// "created on first successful login" lifecycle.
func (s *Store) CreateUser(ctx context.Context, externalID, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (external_id, email)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, external_id, email, created_at`, externalID, email)

	var u model.User
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return &u, nil
}

// GetUser loads a User by id.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, external_id, email, created_at FROM users WHERE id = $1`, id)

	var u model.User
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user %s not found", id)
		}
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// CreateSession inserts a new Session for userID. accessToken and
// refreshToken must already be ciphertext (internal/crypto.Encrypt) —
// the store never sees plaintext tokens.
func (s *Store) CreateSession(ctx context.Context, userID uuid.UUID, encryptedAccessToken, encryptedRefreshToken string, expiresAt time.Time) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, access_token, refresh_token, expires_at, created_at`,
		userID, encryptedAccessToken, encryptedRefreshToken, expiresAt)

	return scanSession(row)
}

// GetSessionForUser returns the most recently created Session for
// userID, or apperr.NotFound if the user has none — used by the worker
// to resolve a folder's access token per job, per §9's "fetch the
// Session row per job" decision.
func (s *Store) GetSessionForUser(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, access_token, refresh_token, expires_at, created_at
		FROM sessions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 1`, userID)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Auth("no session for user %s", userID)
	}
	return sess, err
}

// UpdateSessionTokens persists a refreshed access token (and, if
// provided, a new refresh token) for an existing Session.
func (s *Store) UpdateSessionTokens(ctx context.Context, id uuid.UUID, encryptedAccessToken string, encryptedRefreshToken *string, expiresAt time.Time) error {
	if encryptedRefreshToken != nil {
		_, err := s.db.ExecContext(ctx, `
			UPDATE sessions SET access_token=$2, refresh_token=$3, expires_at=$4 WHERE id=$1`,
			id, encryptedAccessToken, *encryptedRefreshToken, expiresAt)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET access_token=$2, expires_at=$3 WHERE id=$1`,
		id, encryptedAccessToken, expiresAt)
	return err
}

// DeleteSession removes a Session, e.g. on logout or terminal refresh
// failure.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}

func scanSession(row *sql.Row) (*model.Session, error) {
	var sess model.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.EncryptedAccessToken, &sess.EncryptedRefreshToken, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}
