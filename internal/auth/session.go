package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/crypto"
	"github.com/footnote/backend/internal/model"
)

// SessionStore is the slice of internal/store that SessionResolver needs,
// kept narrow so this package never imports internal/store directly.
type SessionStore interface {
	GetFolder(ctx context.Context, id uuid.UUID) (*model.Folder, error)
	GetSessionForUser(ctx context.Context, userID uuid.UUID) (*model.Session, error)
	UpdateSessionTokens(ctx context.Context, id uuid.UUID, encryptedAccessToken string, encryptedRefreshToken *string, expiresAt time.Time) error
}

// SessionResolver resolves a usable access token for a Folder's owner,
// refreshing and persisting a new one when the stored Session has
// expired. Grounded on _get_user_session_for_folder, simplified to this
// repo's one-Session-per-user model (see DESIGN.md Open Question #4).
// Shared by the worker pipeline and the chat request path, matching
// §4.7's "safe to call concurrently from the worker and request
// handlers" requirement — both paths hold their own *SessionResolver
// over the same underlying store/cipher/refresher.
type SessionResolver struct {
	store     SessionStore
	cipher    *crypto.TokenCipher
	refresher *Refresher
}

// NewSessionResolver builds a SessionResolver.
func NewSessionResolver(store SessionStore, cipher *crypto.TokenCipher, refresher *Refresher) *SessionResolver {
	return &SessionResolver{store: store, cipher: cipher, refresher: refresher}
}

// Resolve returns folderID's owner's Session and a decrypted access
// token usable right now, refreshing and persisting a new token first
// if the stored one has expired. A missing session or a failed refresh
// is a Permanent error.
func (r *SessionResolver) Resolve(ctx context.Context, folderID uuid.UUID, now time.Time) (*model.Session, string, error) {
	folder, err := r.store.GetFolder(ctx, folderID)
	if err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: folder %s not found", folderID)
	}

	sess, err := r.store.GetSessionForUser(ctx, folder.UserID)
	if err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: no session for folder %s", folderID)
	}

	if !sess.Expired(now) {
		accessToken, err := r.cipher.Decrypt(sess.EncryptedAccessToken)
		if err != nil {
			return nil, "", apperr.WrapPermanent(err, "auth: decrypt access token")
		}
		return sess, accessToken, nil
	}

	refreshToken, err := r.cipher.Decrypt(sess.EncryptedRefreshToken)
	if err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: decrypt refresh token")
	}

	refreshed, err := r.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: refresh failed for folder %s", folderID)
	}

	encryptedAccess, err := r.cipher.Encrypt(refreshed.AccessToken)
	if err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: encrypt refreshed access token")
	}
	encryptedRefresh, err := r.cipher.Encrypt(refreshed.RefreshToken)
	if err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: encrypt refreshed refresh token")
	}

	if err := r.store.UpdateSessionTokens(ctx, sess.ID, encryptedAccess, &encryptedRefresh, refreshed.ExpiresAt); err != nil {
		return nil, "", apperr.WrapPermanent(err, "auth: persist refreshed session")
	}

	sess.EncryptedAccessToken = encryptedAccess
	sess.EncryptedRefreshToken = encryptedRefresh
	sess.ExpiresAt = refreshed.ExpiresAt
	return sess, refreshed.AccessToken, nil
}
