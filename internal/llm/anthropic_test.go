package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropic_Complete_ParsesTextAndToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be concise", req.System)
		assert.Len(t, req.Tools, 1)

		resp := anthropicResponse{
			Content: []anthropicContent{
				{Type: "text", Text: "checking the folder"},
				{Type: "tool_use", ID: "call_1", Name: "search_folder", Input: &map[string]any{"query": "invoices"}},
			},
			Usage: anthropicUsage{InputTokens: 10, OutputTokens: 5},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "claude-3-5-sonnet-20241022")
	a.baseURL = srv.URL

	result, err := a.Complete(context.Background(), "be concise", []Message{{Role: RoleUser, Text: "find invoices"}},
		[]ToolDefinition{{Name: "search_folder", Description: "search", Parameters: map[string]any{"type": "object"}}}, 512, 0)
	require.NoError(t, err)
	assert.Equal(t, "checking the folder", result.Text)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "search_folder", result.ToolCalls[0].Name)
	assert.Equal(t, "invoices", result.ToolCalls[0].Input["query"])
	assert.Equal(t, Usage{InputTokens: 10, OutputTokens: 5}, result.Usage)
}

func TestAnthropic_Stream_EmitsTextThenDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		events := []string{
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
			`{"type":"message_delta","usage":{"output_tokens":2}}`,
			`{"type":"message_stop"}`,
		}
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "claude-3-5-sonnet-20241022")
	a.baseURL = srv.URL

	events, err := a.Stream(context.Background(), "", []Message{{Role: RoleUser, Text: "hi"}}, 100, 0)
	require.NoError(t, err)

	var text string
	var done bool
	for evt := range events {
		require.NoError(t, evt.Err)
		text += evt.Text
		if evt.Done {
			done = true
			assert.Equal(t, 2, evt.Usage.OutputTokens)
		}
	}
	assert.Equal(t, "Hello", text)
	assert.True(t, done)
}
