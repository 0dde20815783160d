// Package agent implements the two chat-response paths: the tool-using
// agent loop (agentic_rag) and the single-shot standard RAG path
// (standard_rag). Both stream SSE-shaped Events and persist the turn to
// the conversation at the same boundaries the original coroutines commit
// at: user message before generation starts, assistant message (with
// citations) after it ends.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/footnote/backend/internal/llm"
	"github.com/footnote/backend/internal/model"
	"github.com/footnote/backend/internal/retrieve"
	"github.com/footnote/backend/internal/store"
)

// chatModel is the full LLM capability the loop needs: Complete for
// tool-use turns and the forced-synthesis call, Stream for standard
// mode's single completion.
type chatModel = llm.LLM

// Agent runs chat turns against one folder's indexed documents.
type Agent struct {
	store     *store.Store
	retriever *retrieve.Retriever
	tools     *Tools
	model     chatModel
	log       *slog.Logger

	maxIterations int
}

// Config bundles Agent's collaborators and tunables.
type Config struct {
	Store         *store.Store
	Retriever     *retrieve.Retriever
	Tools         *Tools
	Model         chatModel
	MaxIterations int
	Logger        *slog.Logger
}

// New builds an Agent from cfg.
func New(cfg Config) *Agent {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		store:         cfg.Store,
		retriever:     cfg.Retriever,
		tools:         cfg.Tools,
		model:         cfg.Model,
		log:           log,
		maxIterations: maxIter,
	}
}

// Params identifies the folder and conversation a chat turn runs
// against.
type Params struct {
	FolderID       uuid.UUID
	ConversationID uuid.UUID
	UserMessage    string
}

// loadTurn fetches history, appends the user message, and returns the
// loaded history for building the model's message list. Matches both
// coroutines' identical opening: load history, append user turn, commit.
func (a *Agent) loadTurn(ctx context.Context, p Params) ([]*model.Message, error) {
	history, err := a.store.ListMessages(ctx, p.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("agent: load history: %w", err)
	}
	if _, err := a.store.AppendMessage(ctx, p.ConversationID, model.RoleUser, p.UserMessage, nil); err != nil {
		return nil, fmt.Errorf("agent: persist user message: %w", err)
	}
	return history, nil
}

// persistAssistantTurn stores the final answer with its citations,
// matching both coroutines' closing commit.
func (a *Agent) persistAssistantTurn(ctx context.Context, conversationID uuid.UUID, text string, citations map[string]model.Citation) error {
	if _, err := a.store.AppendMessage(ctx, conversationID, model.RoleAssistant, text, citations); err != nil {
		return fmt.Errorf("agent: persist assistant message: %w", err)
	}
	return nil
}

// RunAgentic runs the tool-calling loop for one chat turn, emitting
// Events on the returned channel in the order given by §4.6's streaming
// contract. The channel is closed when the turn completes, including on
// error — a mid-loop failure emits one final EventDone with no
// citations rather than leaving the caller hanging.
func (a *Agent) RunAgentic(ctx context.Context, p Params) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		a.runAgentic(ctx, p, out)
	}()
	return out
}

func (a *Agent) runAgentic(ctx context.Context, p Params, out chan<- Event) {
	history, err := a.loadTurn(ctx, p)
	if err != nil {
		a.log.Error("agent: load turn failed", "error", err)
		return
	}

	folder, err := a.store.GetFolder(ctx, p.FolderID)
	if err != nil {
		a.log.Error("agent: load folder failed", "error", err)
		return
	}

	state := newTurnState(history, p.UserMessage, a.maxIterations)
	systemPrompt := buildAgentSystemPrompt(folder.Name, folder.FilesIndexed, folder.FilesTotal, a.maxIterations)
	tools := toolDefinitions()

	var final llm.CompletionResult
	var haveFinal bool

	for state.iteration < state.maxIter {
		state.iteration++
		out <- Event{Kind: EventStatus, Phase: PhaseSearching, Iteration: state.iteration}

		result, err := a.model.Complete(ctx, systemPrompt, state.messages, tools, 4096, 0)
		if err != nil {
			a.log.Error("agent: llm call failed", "iteration", state.iteration, "error", err)
			break
		}
		final = result
		haveFinal = true

		if len(result.ToolCalls) == 0 {
			break
		}

		// llm.Message carries at most one ToolCall, so each requested
		// tool becomes its own assistant/tool message pair rather than
		// one assistant turn batching every tool_use block — this keeps
		// strict role alternation, which the Anthropic adapter's
		// buildRequest relies on.
		for i, call := range result.ToolCalls {
			call := call
			text := ""
			if i == 0 {
				text = result.Text
			}
			state.messages = append(state.messages, llm.Message{Role: llm.RoleAssistant, ToolCall: &call, Text: text})

			phase := PhaseFor(call.Name)
			out <- Event{Kind: EventStatus, Phase: phase, Iteration: state.iteration, Tool: call.Name}

			toolResult := a.tools.Execute(ctx, call.Name, call.Input, p.FolderID, state)

			state.messages = append(state.messages, llm.Message{
				Role:       llm.RoleTool,
				Text:       toolResult,
				ToolCallID: call.ID,
			})
		}
	}

	out <- Event{Kind: EventStatus, Phase: PhaseGenerating}

	fullResponse := ""
	if haveFinal {
		fullResponse = final.Text
	}

	if haveFinal && state.iteration >= state.maxIter && len(final.ToolCalls) > 0 {
		fullResponse = a.forceSynthesis(ctx, systemPrompt, state)
	}

	for _, r := range streamRunes(fullResponse) {
		out <- Event{Kind: EventToken, Token: r}
	}

	citations := buildCitations(fullResponse, state.indexedChunks)

	if err := a.persistAssistantTurn(ctx, p.ConversationID, fullResponse, citations); err != nil {
		a.log.Error("agent: persist assistant turn failed", "error", err)
	}

	out <- Event{
		Kind:           EventDone,
		Citations:      citations,
		SearchedFiles:  state.searchedFiles,
		ConversationID: p.ConversationID.String(),
		Iterations:     state.iteration,
	}
}

// forceSynthesis runs one more LLM call without tools to force a final
// text answer, matching agentic_rag's post-loop "forcing final
// synthesis" branch. A failure here falls back to a short apology rather
// than propagating, since the user is mid-stream and has already waited
// through MAX_ITER search rounds.
func (a *Agent) forceSynthesis(ctx context.Context, systemPrompt string, state *turnState) string {
	messages := append(append([]llm.Message{}, state.messages...), llm.Message{
		Role: llm.RoleUser,
		Text: synthesisPrompt(state.contextSummary()),
	})

	result, err := a.model.Complete(ctx, systemPrompt, messages, nil, 4096, 0)
	if err != nil {
		a.log.Error("agent: forced synthesis failed", "error", err)
		return "*I searched multiple times but couldn't complete the analysis. Please try rephrasing your question.*"
	}
	return result.Text
}

// streamRunes splits text into one-rune strings so the caller can emit
// fragment-by-fragment token events even for a non-streamed completion,
// matching "for text in full_response: yield token".
func streamRunes(text string) []string {
	runes := []rune(text)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
