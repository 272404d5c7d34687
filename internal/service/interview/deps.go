package interview

import (
	"context"
	"time"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

// TurnRequest asks the generator for one agent turn.
type TurnRequest struct {
	SessionID    string
	AgentName    string
	Instructions string
	// Context holds the agent's private items; system items duplicate Instructions.
	Context   []Turn
	Directive string
	// Tools is empty when the turn must not call any tool.
	Tools []Command
}

// TurnResult is what the model produced for a turn.
type TurnResult struct {
	Text      string
	ToolCalls []string
	Usage     interviewmodel.Usage
}

// Generator produces agent turns. Implementations must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, req TurnRequest) (*TurnResult, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req TurnRequest) (*TurnResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return f(ctx, req)
}

// Terminator performs the hard shutdown of the hosting process or connection.
type Terminator interface {
	Terminate(sessionID string)
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(sessionID string)

func (f TerminatorFunc) Terminate(sessionID string) { f(sessionID) }

// Extractor derives a profile from the finished transcript. It returns an empty
// profile rather than an error.
type Extractor interface {
	Extract(ctx context.Context, transcript []interviewmodel.TranscriptEntry) interviewmodel.Profile
}

// AudioSource returns the session recording if one exists.
type AudioSource interface {
	Audio(ctx context.Context, sessionID string) ([]byte, error)
}

// EventType labels notifications sent to the frontend.
type EventType string

const (
	EventTranscript   EventType = "transcript"
	EventPhaseChanged EventType = "phase_changed"
	EventClosed       EventType = "session_closed"
	EventError        EventType = "error"
)

// Event is a frontend notification.
type Event struct {
	Type       EventType           `json:"type"`
	SessionID  string              `json:"session_id"`
	Role       interviewmodel.Role `json:"role,omitempty"`
	Text       string              `json:"text,omitempty"`
	IsFinal    bool                `json:"is_final,omitempty"`
	PhaseIndex int                 `json:"phase_index"`
	PhaseName  string              `json:"phase_name,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Error      string              `json:"error,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Notifier receives events on the session goroutine and must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }
