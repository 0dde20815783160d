package agent

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/llm"
	"github.com/footnote/backend/internal/model"
)

// indexedChunk is one chunk surfaced to the model via a tool call,
// numbered by its position in the running list so citation markers
// ([N]) can be mapped back to it. Mirrors the dict shape
// extract_citations_from_text expects from indexed_chunks.
type indexedChunk struct {
	chunkID        uuid.UUID
	fileName       string
	location       string
	excerpt        string
	googleDriveURL string
}

// turnState tracks everything that accumulates across one agent loop
// invocation: the ownership split follows reasoning.ReasoningState —
// the loop owns iteration/messages/response, tool execution owns the
// indexed-chunk and searched-file bookkeeping.
type turnState struct {
	messages []llm.Message

	iteration int
	maxIter   int

	indexedChunks []indexedChunk
	seenChunkIDs  map[uuid.UUID]bool

	searchedFiles     []string
	seenSearchedFiles map[string]bool
}

func newTurnState(history []*model.Message, userMessage string, maxIter int) *turnState {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Text: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: userMessage})

	return &turnState{
		messages:          messages,
		maxIter:           maxIter,
		seenChunkIDs:      make(map[uuid.UUID]bool),
		seenSearchedFiles: make(map[string]bool),
	}
}

// recordChunk appends c to indexedChunks if its chunk id hasn't been
// seen this turn, and tracks its file name in searchedFiles (insertion
// order, deduplicated), matching §5's ordering guarantee for
// searched_files.
func (s *turnState) recordChunk(c indexedChunk) {
	if !s.seenChunkIDs[c.chunkID] {
		s.seenChunkIDs[c.chunkID] = true
		s.indexedChunks = append(s.indexedChunks, c)
	}
	if !s.seenSearchedFiles[c.fileName] {
		s.seenSearchedFiles[c.fileName] = true
		s.searchedFiles = append(s.searchedFiles, c.fileName)
	}
}

// contextSummary renders indexedChunks as "[1] file: excerpt" lines, the
// input to the forced-synthesis call.
func (s *turnState) contextSummary() string {
	var b strings.Builder
	for i, c := range s.indexedChunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		excerpt := c.excerpt
		if len(excerpt) > 100 {
			excerpt = excerpt[:100]
		}
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		b.WriteString(c.fileName)
		b.WriteString(": ")
		b.WriteString(excerpt)
	}
	return b.String()
}
