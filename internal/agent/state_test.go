package agent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footnote/backend/internal/llm"
	"github.com/footnote/backend/internal/model"
)

func TestNewTurnState_AppendsUserMessageAfterHistory(t *testing.T) {
	history := []*model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}

	s := newTurnState(history, "what's in the report?", DefaultMaxIterations)

	require.Len(t, s.messages, 3)
	assert.Equal(t, llm.RoleUser, s.messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, s.messages[1].Role)
	assert.Equal(t, llm.RoleUser, s.messages[2].Role)
	assert.Equal(t, "what's in the report?", s.messages[2].Text)
	assert.Equal(t, 0, s.iteration)
	assert.Equal(t, DefaultMaxIterations, s.maxIter)
}

func TestRecordChunk_DedupsByChunkIDAndTracksFileOrder(t *testing.T) {
	s := newTurnState(nil, "q", DefaultMaxIterations)
	id1, id2 := uuid.New(), uuid.New()

	s.recordChunk(indexedChunk{chunkID: id1, fileName: "a.pdf"})
	s.recordChunk(indexedChunk{chunkID: id1, fileName: "a.pdf"})
	s.recordChunk(indexedChunk{chunkID: id2, fileName: "a.pdf"})
	s.recordChunk(indexedChunk{chunkID: uuid.New(), fileName: "b.pdf"})

	assert.Len(t, s.indexedChunks, 3)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, s.searchedFiles)
}

func TestContextSummary_NumbersAndTruncatesExcerpts(t *testing.T) {
	s := newTurnState(nil, "q", DefaultMaxIterations)
	long := ""
	for i := 0; i < 150; i++ {
		long += "y"
	}
	s.recordChunk(indexedChunk{chunkID: uuid.New(), fileName: "a.pdf", excerpt: "short excerpt"})
	s.recordChunk(indexedChunk{chunkID: uuid.New(), fileName: "b.pdf", excerpt: long})

	summary := s.contextSummary()

	assert.Contains(t, summary, "[1] a.pdf: short excerpt")
	assert.Contains(t, summary, "[2] b.pdf: "+long[:100])
	assert.NotContains(t, summary, long[:101])
}
