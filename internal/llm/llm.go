// Package llm defines the LLM capability (streaming chat, tool-calling
// chat, vision) and its Anthropic and Gemini adapters.
package llm

import "context"

// Role is a chat message's author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ImageBlock is an inline base64-encoded image attached to a message.
type ImageBlock struct {
	MediaType string // e.g. "image/png"
	Data      []byte
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Message is one turn of the conversation. A message may carry plain
// text, inline images (user turns, for vision), a prior tool call
// (assistant turns), or a tool result (tool turns, referencing
// ToolCallID).
type Message struct {
	Role       Role
	Text       string
	Images     []ImageBlock
	ToolCall   *ToolCall
	ToolCallID string // set on RoleTool messages, references the ToolCall.ID being answered
}

// ToolDefinition describes a callable tool using a JSON Schema for its
// input shape.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token accounting for a single completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamEvent is one increment of a streaming completion: either a text
// fragment or the terminal usage summary.
type StreamEvent struct {
	Text  string
	Done  bool
	Usage Usage
	Err   error
}

// CompletionResult is a non-streaming chat completion: either plain
// text, or one or more requested tool calls (never both in practice,
// mirroring Anthropic/Gemini's content-block semantics where trailing
// tool_use blocks accompany optional leading text).
type CompletionResult struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// LLM is the capability consumed by the agent loop, standard RAG mode,
// and contextual-chunk enrichment.
type LLM interface {
	// Stream yields text fragments in order, concluding with a Done
	// event carrying token usage. No tool support; used for the
	// standard (non-agent) streamed answer.
	Stream(ctx context.Context, system string, messages []Message, maxTokens int, temperature float64) (<-chan StreamEvent, error)

	// Complete runs a single non-streaming turn, optionally offering
	// tools. Used by the agent loop, which inspects ToolCalls to decide
	// whether to keep iterating.
	Complete(ctx context.Context, system string, messages []Message, tools []ToolDefinition, maxTokens int, temperature float64) (CompletionResult, error)
}
