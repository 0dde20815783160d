package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/footnote/backend/internal/apperr"
	"github.com/footnote/backend/internal/chunk"
	"github.com/footnote/backend/internal/llm"
)

// contextPrompt mirrors CONTEXT_PROMPT: a short excerpt of the full
// document plus the chunk, asking for a one-to-two sentence situating
// blurb.
const contextPrompt = `Document: %s

%s

---
Chunk to contextualize:
%s

Write 1-2 sentences situating this chunk within the document. Output only the context.`

const (
	contextMinDocLen     = 500
	contextExcerptLen    = 6000
	contextMaxConcurrent = 2
	contextMaxTokens     = 100
)

// contextualize prefixes each chunk with a short LLM-generated blurb
// situating it within fullDocument, bounded to maxConcurrent in-flight
// calls via errgroup (the same idiom the teacher's workflow agent uses
// for parallel sub-agent execution). Documents under contextMinDocLen
// are left untouched — too short to benefit, matching
// _generate_chunk_contexts. A chunk whose context call fails after
// retries keeps its original text; this never fails the file.
func contextualizeChunks(ctx context.Context, model llm.LLM, fileName, fullDocument string, chunks []chunk.Chunk) []chunk.Chunk {
	if len(fullDocument) < contextMinDocLen {
		return chunks
	}

	excerpt := fullDocument
	if len(excerpt) > contextExcerptLen {
		excerpt = excerpt[:contextExcerptLen] + "\n[...truncated...]"
	}

	out := make([]chunk.Chunk, len(chunks))
	copy(out, chunks)

	retryer := NewRetryer(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    8 * time.Second,
		Retryable:   apperr.IsRetryable,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contextMaxConcurrent)

	for i := range out {
		i := i
		g.Go(func() error {
			text := out[i].Text
			generated, err := DoWithResult(gctx, retryer, func(int) (string, error) {
				return generateSingleContext(gctx, model, fileName, excerpt, text)
			})
			if err != nil || generated == "" {
				return nil
			}
			out[i].Text = generated + "\n\n" + text
			return nil
		})
	}
	// Errors are swallowed per-chunk above; Wait only propagates ctx
	// cancellation, which the caller already handles.
	_ = g.Wait()

	return out
}

func generateSingleContext(ctx context.Context, model llm.LLM, fileName, docExcerpt, chunkText string) (string, error) {
	prompt := fmt.Sprintf(contextPrompt, fileName, docExcerpt, chunkText)
	result, err := model.Complete(ctx, "", []llm.Message{{Role: llm.RoleUser, Text: prompt}}, nil, contextMaxTokens, 0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}
