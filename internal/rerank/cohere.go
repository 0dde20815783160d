package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/httpclient"
)

// Cohere is a Reranker backed by Cohere's rerank endpoint. Grounded on
// the same hand-rolled HTTP idiom as pkg/embedders/cohere.go, pointed at
// /v1/rerank instead of /v1/embed.
type Cohere struct {
	http    *httpclient.Client
	apiKey  string
	baseURL string
	model   string
}

// NewCohere builds a Cohere reranker. rerank-english-v3.0 is the usual
// cross-encoder model choice.
func NewCohere(apiKey, model string) *Cohere {
	return &Cohere{
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseRetryAfterOnly),
		),
		apiKey:  apiKey,
		baseURL: "https://api.cohere.ai/v1",
		model:   model,
	}
}

type cohereRerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model,omitempty"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float32 `json:"relevance_score"`
	} `json:"results"`
}

func (c *Cohere) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(documents) {
		topK = len(documents)
	}

	body, err := json.Marshal(cohereRerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
		TopN:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: marshal cohere request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: build cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.WrapTransient(err, "rerank: cohere request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapRerankStatus(resp.StatusCode)
	}

	var out cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("rerank: decode cohere response: %w", err)
	}

	results := make([]Result, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, Result{Index: r.Index, Score: r.RelevanceScore})
	}
	return results, nil
}

func mapRerankStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.Transient("rerank: cohere rate limited")
	case status >= 500:
		return apperr.Transient("rerank: cohere returned HTTP %d", status)
	default:
		return apperr.Permanent("rerank: cohere returned HTTP %d", status)
	}
}
