package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footnote/backend/internal/httpclient"
)

func newNoRetryClient() *httpclient.Client {
	return httpclient.New(httpclient.WithMaxRetries(0))
}

func TestOpenAI_EmbedBatch_ReordersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := openAIEmbedResponse{}
		// respond out of order to exercise the reordering logic
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(i)}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "text-embedding-3-small", 1)
	o.baseURL = srv.URL

	out, err := o.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{0}, out[0])
	assert.Equal(t, []float32{1}, out[1])
	assert.Equal(t, []float32{2}, out[2])
}

func TestOpenAI_EmbedBatch_MapsRateLimitToTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "text-embedding-3-small", 1)
	o.baseURL = srv.URL
	o.http = newNoRetryClient()

	_, err := o.Embed(context.Background(), "hello")
	require.Error(t, err)
}

func TestCohere_EmbedBatch_PositionallyAligned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cohereEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := cohereEmbedResponse{}
		for range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float32{1, 2})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewCohere("test-key", "embed-english-v3.0", 1024)
	c.baseURL = srv.URL

	out, err := c.EmbedBatch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float32{1, 2}, out[0])
}
