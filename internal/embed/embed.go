// Package embed defines the Embedder capability (single/batched text
// embedding, order-preserving) and its OpenAI and Cohere adapters.
package embed

import "context"

// Embedder maps text to a fixed-dimension vector. EmbedBatch preserves
// input order even when the provider returns results out of order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
