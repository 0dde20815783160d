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

// OpenAI is an Embedder backed by OpenAI's embeddings endpoint.
// Grounded on pkg/embedders/openai.go's request/response shapes, wired
// onto internal/httpclient instead of a bespoke retry loop.
type OpenAI struct {
	http      *httpclient.Client
	apiKey    string
	baseURL   string
	model     string
	dimension int
	batchSize int
}

// NewOpenAI builds an OpenAI embedder. dimension should match the
// model's native output width; 1536 is correct for text-embedding-3-small.
func NewOpenAI(apiKey, model string, dimension int) *OpenAI {
	return &OpenAI{
		http: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
		apiKey:    apiKey,
		baseURL:   "https://api.openai.com/v1",
		model:     model,
		dimension: dimension,
		batchSize: 100,
	}
}

func (o *OpenAI) Dimension() int { return o.dimension }

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += o.batchSize {
		end := min(i+o.batchSize, len(texts))
		batch, err := o.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, apperr.WrapTransient(err, "embed: openai request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, mapEmbedStatus(resp.StatusCode, "openai")
	}

	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode openai response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, apperr.Transient("embed: openai returned no embeddings")
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	return embeddings, nil
}

func mapEmbedStatus(status int, provider string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return apperr.Transient("embed: %s rate limited", provider)
	case status >= 500:
		return apperr.Transient("embed: %s returned HTTP %d", provider, status)
	default:
		return apperr.Permanent("embed: %s returned HTTP %d", provider, status)
	}
}
