package agent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileID_ValidAndInvalid(t *testing.T) {
	want := uuid.New()
	got, err := parseFileID(map[string]any{"file_id": want.String()})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = parseFileID(map[string]any{"file_id": "not-a-uuid"})
	assert.EqualError(t, err, "invalid file ID format")

	_, err = parseFileID(map[string]any{})
	assert.Error(t, err)
}

func TestPhaseFor_MapsEachToolToItsPhase(t *testing.T) {
	assert.Equal(t, PhaseSearching, PhaseFor(string(toolSearchFolder)))
	assert.Equal(t, PhaseReadingFile, PhaseFor(string(toolGetFileChunks)))
	assert.Equal(t, PhaseReadingFile, PhaseFor(string(toolGetFile)))
	assert.Equal(t, PhaseProcessing, PhaseFor("unknown_tool"))
}

func TestRound4_RoundsToFourDecimalPlaces(t *testing.T) {
	assert.Equal(t, 0.1235, round4(0.12345))
	assert.Equal(t, 0.6, round4(0.6))
}

func TestToolDefinitions_ListsExactlyThreeTools(t *testing.T) {
	defs := toolDefinitions()
	require.Len(t, defs, 3)

	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
	}
	assert.True(t, names[string(toolSearchFolder)])
	assert.True(t, names[string(toolGetFileChunks)])
	assert.True(t, names[string(toolGetFile)])
}
