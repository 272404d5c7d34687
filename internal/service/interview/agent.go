package interview

import (
	"fmt"
	"log"
	"strings"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
)

const (
	candidateContextLimit = 400
	hintLimit             = 3
)

// Brief is the candidate-level context shared by every phase agent.
type Brief struct {
	CandidateName    string
	CandidateContext string
	Guidelines       string
	TopicsToAvoid    []string
	Hints            []string
}

// PhaseAgent is the immutable conversational persona bound to one phase.
type PhaseAgent struct {
	Index        int
	Phase        interviewmodel.Phase
	Terminal     bool
	Instructions string
}

// Name returns the agent's phase key.
func (a *PhaseAgent) Name() string {
	return a.Phase.Key()
}

// Tools returns the commands this agent may issue.
func (a *PhaseAgent) Tools() []Command {
	if a.Terminal {
		return []Command{CommandEndNormally, CommandEndEarly}
	}
	return []Command{CommandAdvance, CommandEndEarly}
}

// Allows reports whether cmd is part of the agent's tool surface.
func (a *PhaseAgent) Allows(cmd Command) bool {
	for _, tool := range a.Tools() {
		if tool == cmd {
			return true
		}
	}
	return false
}

// BuildAgents creates one agent per phase; only the last one is terminal.
func BuildAgents(phases []interviewmodel.Phase, brief Brief, prompts *ai.PromptManager) []*PhaseAgent {
	if prompts == nil {
		prompts = ai.NewPromptManager()
	}
	base := prompts.MustRender(ai.PromptBasePersonality, nil)

	agents := make([]*PhaseAgent, len(phases))
	for i, phase := range phases {
		terminal := i == len(phases)-1
		phase.IsTerminal = terminal
		agents[i] = &PhaseAgent{
			Index:        i,
			Phase:        phase,
			Terminal:     terminal,
			Instructions: BuildInstructions(base, phase, terminal, brief),
		}
		log.Printf("[interview] created agent %s | questions=%d | instructions_len=%d | terminal=%t",
			phase.Key(), len(phase.Questions), len(agents[i].Instructions), terminal)
	}
	return agents
}

// BuildInstructions renders the focused instructions of a single phase agent.
func BuildInstructions(base string, phase interviewmodel.Phase, terminal bool, brief Brief) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))

	fmt.Fprintf(&b, "\n\nCANDIDATE: %s\n", truncateRunes(strings.TrimSpace(brief.CandidateContext), candidateContextLimit))
	if guidelines := strings.TrimSpace(brief.Guidelines); guidelines != "" {
		fmt.Fprintf(&b, "\nCONVERSATION GUIDELINES:\n%s\n", guidelines)
	}
	fmt.Fprintf(&b, "\nYOUR PHASE: %s\nGOAL: %s\n", phase.Name, phase.Goal)

	b.WriteString("\nQUESTIONS TO ASK:\n")
	for _, q := range phase.Questions {
		fmt.Fprintf(&b, "- %s\n", q.Text)
		if q.FollowUpQuestion != "" && q.FollowUpIf != "" {
			fmt.Fprintf(&b, "  (if %s: %s)\n", q.FollowUpIf, q.FollowUpQuestion)
		}
	}

	if len(brief.TopicsToAvoid) > 0 {
		fmt.Fprintf(&b, "\nDo NOT ask about: %s\n", strings.Join(brief.TopicsToAvoid, ", "))
	}
	if len(brief.Hints) > 0 {
		hints := brief.Hints
		if len(hints) > hintLimit {
			hints = hints[:hintLimit]
		}
		fmt.Fprintf(&b, "\nPersonalization tips: %s\n", strings.Join(hints, ", "))
	}

	if terminal {
		fmt.Fprintf(&b, "\nAfter covering your questions:\n"+
			"1. Thank the candidate warmly\n"+
			"2. Tell them their enhanced resume will be ready shortly\n"+
			"3. Say a brief goodbye in English\n"+
			"4. Call %s() IMMEDIATELY\n", CommandEndNormally.ToolName())
	} else {
		fmt.Fprintf(&b, "\nAfter covering your questions, call %s() to continue the interview.\n", CommandAdvance.ToolName())
	}

	fmt.Fprintf(&b, "\nEARLY EXIT: If the candidate says goodbye (bye, chau, adios, ciao, see you, etc.), "+
		"say a brief warm farewell in English and call %s() IMMEDIATELY.", CommandEndEarly.ToolName())
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
