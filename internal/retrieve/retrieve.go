// Package retrieve implements the hybrid retriever: dense (pgvector
// cosine), lexical (Postgres full-text), and recency signals fused into
// one ranked list, with an optional cross-encoder rerank stage.
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/embed"
	"github.com/footnote/backend/internal/model"
	"github.com/footnote/backend/internal/rerank"
	"github.com/footnote/backend/internal/store"
)

// FusionStrategy selects how the three per-signal scores are combined
// into one ranking. Chosen at construction time, per spec.
type FusionStrategy int

const (
	// WeightedSum combines w_v*dense + w_k*lexical + w_r*recency. The
	// default: it is the only form that admits recency uniformly.
	WeightedSum FusionStrategy = iota
	// RRF sums 1/(k+rank) across each signal's own ranking, k=60.
	RRF
)

const (
	defaultVectorWeight  = 0.6
	defaultKeywordWeight = 0.2
	defaultRecencyWeight = 0.2

	recencyHalfLifeDays = 30.0
	rrfK                = 60

	defaultInitialTopK = 30
	defaultFinalTopK   = 10
)

// Result is one retrieved chunk with every per-signal score attached,
// for citation rendering and score inspection.
type Result struct {
	ChunkID       uuid.UUID
	FileID        uuid.UUID
	FileName      string
	RemoteFileID  string
	Text          string
	Location      model.Location
	VectorScore   float64
	KeywordScore  float64
	RecencyScore  float64
	WeightedScore float64
	RerankScore   *float64
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithFusionStrategy overrides the default WeightedSum fusion.
func WithFusionStrategy(f FusionStrategy) Option {
	return func(r *Retriever) { r.fusion = f }
}

// WithWeights overrides the default 0.6/0.2/0.2 weighted-sum weights.
// Only meaningful when the fusion strategy is WeightedSum.
func WithWeights(vector, keyword, recency float64) Option {
	return func(r *Retriever) { r.vectorWeight, r.keywordWeight, r.recencyWeight = vector, keyword, recency }
}

// Retriever runs the hybrid search and optional two-stage rerank
// against a Store, embedding queries through an Embedder and (when
// invoked) scoring candidates through a Reranker.
type Retriever struct {
	store    *store.Store
	embedder embed.Embedder
	reranker rerank.Reranker

	fusion                                      FusionStrategy
	vectorWeight, keywordWeight, recencyWeight float64
}

// New builds a Retriever. reranker may be nil; RetrieveAndRerank then
// falls back to returning the fused ranking unreranked.
func New(s *store.Store, embedder embed.Embedder, reranker rerank.Reranker, opts ...Option) *Retriever {
	r := &Retriever{
		store:         s,
		embedder:      embedder,
		reranker:      reranker,
		fusion:        WeightedSum,
		vectorWeight:  defaultVectorWeight,
		keywordWeight: defaultKeywordWeight,
		recencyWeight: defaultRecencyWeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the single-stage hybrid search: embed the query, run
// dense and lexical search in parallel signal sets, fuse, and return the
// top topK by combined score.
func (r *Retriever) Retrieve(ctx context.Context, query string, folderID uuid.UUID, topK int) ([]Result, error) {
	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}

	vectorHits, err := r.store.VectorSearch(ctx, folderID, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: vector search: %w", err)
	}

	keywordHits, err := r.store.KeywordSearch(ctx, folderID, buildOrQuery(query), topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: keyword search: %w", err)
	}

	results := r.fuse(vectorHits, keywordHits)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// RetrieveAndRerank is the two-stage path: fuse initialTopK candidates,
// then (if more than finalTopK survive and a reranker is configured)
// rerank their text and reorder by cross-encoder score.
func (r *Retriever) RetrieveAndRerank(ctx context.Context, query string, folderID uuid.UUID, initialTopK, finalTopK int) ([]Result, error) {
	if initialTopK <= 0 {
		initialTopK = defaultInitialTopK
	}
	if finalTopK <= 0 {
		finalTopK = defaultFinalTopK
	}

	candidates, err := r.Retrieve(ctx, query, folderID, initialTopK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}
	if len(candidates) <= finalTopK || r.reranker == nil {
		if len(candidates) > finalTopK {
			candidates = candidates[:finalTopK]
		}
		return candidates, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	reranked, err := r.reranker.Rerank(ctx, query, documents, finalTopK)
	if err != nil {
		// Reranking is an optional refinement; a provider failure falls
		// back to the fused ranking rather than failing the request.
		if len(candidates) > finalTopK {
			candidates = candidates[:finalTopK]
		}
		return candidates, nil
	}

	out := make([]Result, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(candidates) {
			continue
		}
		c := candidates[rr.Index]
		score := float64(rr.Score)
		c.RerankScore = &score
		out = append(out, c)
	}
	return out, nil
}

func (r *Retriever) fuse(vectorHits, keywordHits []store.SearchHit) []Result {
	byID := make(map[uuid.UUID]*Result)
	order := make([]uuid.UUID, 0, len(vectorHits)+len(keywordHits))

	ensure := func(h store.SearchHit) *Result {
		if existing, ok := byID[h.ChunkID]; ok {
			return existing
		}
		res := &Result{
			ChunkID:      h.ChunkID,
			FileID:       h.FileID,
			FileName:     h.FileName,
			RemoteFileID: h.RemoteFileID,
			Text:         h.Text,
			Location:     h.Location,
			RecencyScore: recencyScore(h.FileUpdated, recencyHalfLifeDays),
		}
		byID[h.ChunkID] = res
		order = append(order, h.ChunkID)
		return res
	}

	for _, h := range vectorHits {
		ensure(h).VectorScore = h.Score
	}
	for _, h := range keywordHits {
		ensure(h).KeywordScore = h.Score
	}

	switch r.fusion {
	case RRF:
		r.applyRRF(order, byID, vectorHits, keywordHits)
	default:
		for _, id := range order {
			res := byID[id]
			res.WeightedScore = r.vectorWeight*res.VectorScore + r.keywordWeight*res.KeywordScore + r.recencyWeight*res.RecencyScore
		}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}
	sort.Slice(results, func(i, j int) bool { return results[i].WeightedScore > results[j].WeightedScore })
	return results
}

// applyRRF sets WeightedScore to the Reciprocal Rank Fusion sum
// 1/(k+rank) across each signal's own rank ordering (1-indexed), the
// construction-time alternative to weighted-sum fusion.
func (r *Retriever) applyRRF(order []uuid.UUID, byID map[uuid.UUID]*Result, vectorHits, keywordHits []store.SearchHit) {
	rankOf := func(hits []store.SearchHit) map[uuid.UUID]int {
		ranks := make(map[uuid.UUID]int, len(hits))
		for i, h := range hits {
			ranks[h.ChunkID] = i + 1
		}
		return ranks
	}
	vectorRanks := rankOf(vectorHits)
	keywordRanks := rankOf(keywordHits)

	for _, id := range order {
		var score float64
		if rank, ok := vectorRanks[id]; ok {
			score += 1.0 / float64(rrfK+rank)
		}
		if rank, ok := keywordRanks[id]; ok {
			score += 1.0 / float64(rrfK+rank)
		}
		byID[id].WeightedScore = score
	}
}

// recencyScore implements exponential decay: 1.0 now, 0.5 at
// halfLifeDays, 0.25 at 2*halfLifeDays. Files with no modified time get
// the spec's neutral default of 0.5.
func recencyScore(updatedAt *time.Time, halfLifeDays float64) float64 {
	if updatedAt == nil {
		return 0.5
	}
	ageDays := time.Since(*updatedAt).Hours() / 24
	if ageDays < 0 {
		return 1.0
	}
	decayRate := math.Ln2 / halfLifeDays
	return math.Exp(-decayRate * ageDays)
}
