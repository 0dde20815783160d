package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohere_Rerank_ReturnsScoredIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cohereRerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.TopN)

		resp := cohereRerankResponse{}
		resp.Results = append(resp.Results,
			struct {
				Index          int     `json:"index"`
				RelevanceScore float32 `json:"relevance_score"`
			}{Index: 2, RelevanceScore: 0.9},
			struct {
				Index          int     `json:"index"`
				RelevanceScore float32 `json:"relevance_score"`
			}{Index: 0, RelevanceScore: 0.4},
		)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewCohere("test-key", "rerank-english-v3.0")
	c.baseURL = srv.URL

	results, err := c.Rerank(context.Background(), "query", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Index)
	assert.Equal(t, float32(0.9), results[0].Score)
}

func TestCohere_Rerank_EmptyDocumentsShortCircuits(t *testing.T) {
	c := NewCohere("test-key", "rerank-english-v3.0")
	results, err := c.Rerank(context.Background(), "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
