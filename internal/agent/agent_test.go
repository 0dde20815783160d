package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamRunes_SplitsMultibyteTextByRune(t *testing.T) {
	got := streamRunes("hi ☕")

	assert.Equal(t, []string{"h", "i", " ", "☕"}, got)
}

func TestStreamRunes_EmptyTextReturnsEmptySlice(t *testing.T) {
	got := streamRunes("")

	assert.Empty(t, got)
}
