package embed

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

// Cohere is an Embedder backed by Cohere's embed endpoint. Grounded on
// pkg/embedders/cohere.go's request/response shapes.
type Cohere struct {
	http      *httpclient.Client
	apiKey    string
	baseURL   string
	model     string
	dimension int
	batchSize int
}

// NewCohere builds a Cohere embedder; 1024 is correct for
// embed-english-v3.0.
func NewCohere(apiKey, model string, dimension int) *Cohere {
	return &Cohere{
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseRetryAfterOnly),
		),
		apiKey:    apiKey,
		baseURL:   "https://api.cohere.ai/v1",
		model:     model,
		dimension: dimension,
		batchSize: 96,
	}
}

func (c *Cohere) Dimension() int { return c.dimension }

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	InputType string   `json:"input_type,omitempty"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *Cohere) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *Cohere) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		batch, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

// embedBatch does not need index-based reordering: Cohere's embed
// endpoint returns embeddings positionally aligned with the input texts,
// unlike OpenAI's index-tagged response.
func (c *Cohere) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(cohereEmbedRequest{Texts: texts, Model: c.model, InputType: "search_document"})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal cohere request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.WrapTransient(err, "embed: cohere request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapEmbedStatus(resp.StatusCode, "cohere")
	}

	var out cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode cohere response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, apperr.Transient("embed: cohere returned %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}
