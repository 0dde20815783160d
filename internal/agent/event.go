package agent

import "github.com/footnote/backend/internal/model"

// EventKind discriminates the three event shapes the loop emits, per
// §4.6's streaming contract: status, token, and the terminal summary.
type EventKind int

const (
	EventStatus EventKind = iota
	EventToken
	EventDone
)

// Phase names an agent_status event's phase.
type Phase string

const (
	PhaseSearching   Phase = "searching"
	PhaseReadingFile Phase = "reading_file"
	PhaseProcessing  Phase = "processing"
	PhaseGenerating  Phase = "generating"
)

// Event is one SSE-framed increment of a chat response. The HTTP layer
// is responsible for the "data: ...\n\n" wire framing; this package only
// decides what goes in each event, in order.
type Event struct {
	Kind EventKind

	// EventStatus
	Phase     Phase
	Iteration int
	Tool      string

	// EventToken
	Token string

	// EventDone
	Citations      map[string]model.Citation
	SearchedFiles  []string
	ConversationID string
	Iterations     int
}
