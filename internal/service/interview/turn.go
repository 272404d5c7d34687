package interview

import "github.com/google/uuid"

// TurnRole is the author of a context item.
type TurnRole string

const (
	TurnSystem    TurnRole = "system"
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
	TurnTool      TurnRole = "tool"
)

// Turn is one item of an agent's private conversation context.
type Turn struct {
	ID      string   `json:"id"`
	Role    TurnRole `json:"role"`
	Text    string   `json:"text,omitempty"`
	Command Command  `json:"command,omitempty"`
	Handoff bool     `json:"handoff,omitempty"`
}

func newTurn(role TurnRole, text string) Turn {
	return Turn{ID: uuid.NewString(), Role: role, Text: text}
}

// Carryover appends the tail of prev to current: system instructions and handoff
// calls are dropped, at most limit items are taken and ids already in current are skipped.
func Carryover(prev, current []Turn, limit int) []Turn {
	out := append([]Turn(nil), current...)
	if limit <= 0 || len(prev) == 0 {
		return out
	}

	eligible := make([]Turn, 0, len(prev))
	for _, turn := range prev {
		if turn.Role == TurnSystem || turn.Handoff {
			continue
		}
		eligible = append(eligible, turn)
	}
	if len(eligible) > limit {
		eligible = eligible[len(eligible)-limit:]
	}

	existing := make(map[string]struct{}, len(out))
	for _, turn := range out {
		existing[turn.ID] = struct{}{}
	}
	for _, turn := range eligible {
		if _, ok := existing[turn.ID]; ok {
			continue
		}
		existing[turn.ID] = struct{}{}
		out = append(out, turn)
	}
	return out
}
