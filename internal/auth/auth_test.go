package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footnote/backend/internal/apperr"
)

func TestRefresh_EmptyTokenIsPermanent(t *testing.T) {
	r := NewRefresher("http://unused", "client", "secret")

	_, err := r.Refresh(context.Background(), "")

	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindPermanent, kind)
}

func TestRefresh_SuccessParsesExpiryAndFallsBackRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "old-refresh", r.FormValue("refresh_token"))
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access",
			"expires_in":   3600,
		}))
	}))
	defer srv.Close()

	r := NewRefresher(srv.URL, "client", "secret")

	refreshed, err := r.Refresh(context.Background(), "old-refresh")

	require.NoError(t, err)
	assert.Equal(t, "new-access", refreshed.AccessToken)
	assert.Equal(t, "old-refresh", refreshed.RefreshToken) // falls back when absent from response
	assert.True(t, refreshed.ExpiresAt.After(time.Now()))
}

func TestRefresh_NonOKStatusIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	r := NewRefresher(srv.URL, "client", "secret")

	_, err := r.Refresh(context.Background(), "old-refresh")

	kind, ok := apperr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindAuth, kind)
}
