// Package rerank defines the Reranker capability (query, documents[],
// top_k -> ranked subset) and a Cohere rerank-endpoint adapter.
package rerank

import "context"

// Result is one reranked document: Index is its position in the
// original documents slice passed to Rerank, Score is the cross-encoder
// relevance score (higher is more relevant).
type Result struct {
	Index int
	Score float32
}

// Reranker scores documents against a query using a cross-encoder model
// and returns the top_k by relevance, descending.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error)
}
