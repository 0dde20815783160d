package agent

import (
	"context"
	"fmt"
)

const (
	standardInitialTopK = 30
	standardFinalTopK   = 15
	contextTopK         = 8
)

// RunStandard runs the single-shot RAG path: one hybrid-search call,
// one streamed completion, citation extraction, persist. Matches
// standard_rag. The channel closes when the turn completes.
func (a *Agent) RunStandard(ctx context.Context, p Params) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		a.runStandard(ctx, p, out)
	}()
	return out
}

func (a *Agent) runStandard(ctx context.Context, p Params, out chan<- Event) {
	history, err := a.loadTurn(ctx, p)
	if err != nil {
		a.log.Error("agent: load turn failed", "error", err)
		return
	}

	results, err := a.retriever.RetrieveAndRerank(ctx, p.UserMessage, p.FolderID, standardInitialTopK, standardFinalTopK)
	if err != nil {
		a.log.Error("agent: retrieve failed", "error", err)
		out <- Event{Kind: EventDone, ConversationID: p.ConversationID.String()}
		return
	}

	seenFiles := make([]string, 0, len(results))
	seenSet := make(map[string]bool, len(results))
	for _, c := range results {
		if !seenSet[c.FileName] {
			seenSet[c.FileName] = true
			seenFiles = append(seenFiles, c.FileName)
		}
	}

	topChunks := results
	if len(topChunks) > contextTopK {
		topChunks = topChunks[:contextTopK]
	}

	indexed := make([]indexedChunk, len(topChunks))
	for i, c := range topChunks {
		indexed[i] = indexedChunk{
			chunkID:        c.ChunkID,
			fileName:       c.FileName,
			location:       c.Location.String(),
			excerpt:        excerptOf(c.Text, 200),
			googleDriveURL: buildGoogleDriveURL(c.RemoteFileID),
		}
	}

	systemPrompt := fmt.Sprintf("%s\n\nCONTEXT:\n%s", standardSystemPrompt, buildStandardContext(topChunks))

	state := newTurnState(history, p.UserMessage, 1)
	// newTurnState already appended the user message onto history; reuse
	// its message list so conversation history threads through exactly
	// as it does in the agent loop.
	messages := state.messages

	events, err := a.model.Stream(ctx, systemPrompt, messages, 4096, 0)
	if err != nil {
		a.log.Error("agent: stream failed", "error", err)
		out <- Event{Kind: EventDone, ConversationID: p.ConversationID.String()}
		return
	}

	fullResponse := ""
	for ev := range events {
		if ev.Err != nil {
			a.log.Error("agent: stream error", "error", ev.Err)
			break
		}
		if ev.Done {
			break
		}
		fullResponse += ev.Text
		out <- Event{Kind: EventToken, Token: ev.Text}
	}

	citations := buildCitations(fullResponse, indexed)

	if err := a.persistAssistantTurn(ctx, p.ConversationID, fullResponse, citations); err != nil {
		a.log.Error("agent: persist assistant turn failed", "error", err)
	}

	out <- Event{
		Kind:           EventDone,
		Citations:      citations,
		SearchedFiles:  seenFiles,
		ConversationID: p.ConversationID.String(),
	}
}
