package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footnote/backend/internal/extract"
	"github.com/footnote/backend/internal/model"
)

func heading(text string) extract.TextBlock {
	return extract.TextBlock{
		Text:     text,
		Location: model.Location{ElementType: model.ElementHeading, HeadingPath: text},
	}
}

func para(text string) extract.TextBlock {
	return extract.TextBlock{Text: text, Location: model.Location{ElementType: model.ElementParagraph}}
}

func TestDocument_Empty(t *testing.T) {
	chunks := Document(nil)
	assert.Empty(t, chunks)
}

func TestDocument_SmallBlocksMergeIntoOneChunk(t *testing.T) {
	blocks := []extract.TextBlock{
		heading("Introduction"),
		para("This is a short paragraph."),
		para("Another short paragraph."),
	}
	chunks := Document(blocks)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Introduction")
	assert.Contains(t, chunks[0].Text, "Another short paragraph.")
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestDocument_TooSmallBufferIsDropped(t *testing.T) {
	blocks := []extract.TextBlock{para("short")}
	chunks := Document(blocks)
	assert.Empty(t, chunks, "a buffer under Min should never be emitted")
}

func TestDocument_HeadingStartsNewChunk(t *testing.T) {
	longPara := strings.Repeat("word ", 300) // > Target
	blocks := []extract.TextBlock{
		para(longPara),
		heading("Section Two"),
		para(strings.Repeat("other ", 30)),
	}
	chunks := Document(blocks)
	require.GreaterOrEqual(t, len(chunks), 2)
	// chunk indices are strictly increasing in emission order
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestDocument_OversizedBlockIsSplitWithOverlap(t *testing.T) {
	sentence := "This is one sentence that repeats. "
	huge := strings.Repeat(sentence, 80) // well over Max
	blocks := []extract.TextBlock{para(huge)}

	chunks := Document(blocks)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), Max+Overlap, "split chunks should stay near Target, never ballooning past Max+overlap")
	}
	// sub_chunk bookkeeping increases within the split run
	assert.Equal(t, 0, chunks[0].Location.SubChunk)
	assert.Equal(t, 1, chunks[1].Location.SubChunk)
}

func TestDocument_ChunkIndicesAreMonotonic(t *testing.T) {
	blocks := []extract.TextBlock{
		heading("A"),
		para(strings.Repeat("x", 1800)),
		heading("B"),
		para(strings.Repeat("y", 1800)),
	}
	chunks := Document(blocks)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestPreview_HeadingsThenContent(t *testing.T) {
	blocks := []extract.TextBlock{
		heading("Title"),
		para("Body content here."),
	}
	preview := Preview(blocks)
	assert.Equal(t, "Title\nBody content here.", preview)
}

func TestPreview_TruncatesContentPastMaxLength(t *testing.T) {
	blocks := []extract.TextBlock{para(strings.Repeat("a", previewMaxLength+50))}
	preview := Preview(blocks)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len(preview), previewMaxLength+3)
}
