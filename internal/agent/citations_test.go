package agent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCitationNumbers_DedupsAndParses(t *testing.T) {
	numbers := extractCitationNumbers("Revenue grew [1] while costs fell [2][1]. See [10] too.")

	assert.Equal(t, map[int]bool{1: true, 2: true, 10: true}, numbers)
}

func TestExtractCitationNumbers_NoMarkersReturnsEmpty(t *testing.T) {
	numbers := extractCitationNumbers("no citations here")

	assert.Empty(t, numbers)
}

func TestBuildGoogleDriveURL(t *testing.T) {
	assert.Equal(t, "", buildGoogleDriveURL(""))
	assert.Equal(t, "https://drive.google.com/file/d/abc123/view", buildGoogleDriveURL("abc123"))
}

func TestBuildCitations_MapsInRangeDropsOutOfRange(t *testing.T) {
	id1, id2 := uuid.New(), uuid.New()
	chunks := []indexedChunk{
		{chunkID: id1, fileName: "a.pdf", location: "p.1", excerpt: "excerpt a", googleDriveURL: "url-a"},
		{chunkID: id2, fileName: "b.pdf", location: "p.2", excerpt: "excerpt b", googleDriveURL: "url-b"},
	}

	citations := buildCitations("claim one [1], claim two [2], bogus [3][0]", chunks)

	require.Len(t, citations, 2)
	assert.Equal(t, "a.pdf", citations["1"].FileName)
	assert.Equal(t, id1, citations["1"].ChunkID)
	assert.Equal(t, "url-b", citations["2"].SourceURL)
	_, hasThree := citations["3"]
	_, hasZero := citations["0"]
	assert.False(t, hasThree)
	assert.False(t, hasZero)
}

func TestBuildCitations_NoMarkersReturnsEmptyMap(t *testing.T) {
	citations := buildCitations("an answer with no markers", []indexedChunk{{fileName: "a.pdf"}})

	assert.Empty(t, citations)
}

func TestExcerptOf_TruncatesAndAppendsEllipsis(t *testing.T) {
	short := "short text"
	assert.Equal(t, short, excerptOf(short, 200))

	long := ""
	for i := 0; i < 250; i++ {
		long += "x"
	}
	got := excerptOf(long, 200)
	assert.Len(t, got, 203)
	assert.Equal(t, long[:200]+"...", got)
}
