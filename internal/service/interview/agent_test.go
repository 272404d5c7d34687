package interview

import (
	"reflect"
	"strings"
	"testing"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
)

func TestBuildAgentsOnlyLastIsTerminal(t *testing.T) {
	phases := []interviewmodel.Phase{
		phase("Warmup", "q1"),
		{Name: "Deep Dive", Goal: "dig", IsTerminal: true, Questions: []interviewmodel.Question{{Text: "q2"}}},
		phase("Closing", "q3"),
	}
	agents := BuildAgents(phases, Brief{CandidateName: "Ada"}, nil)
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	for i, agent := range agents {
		want := i == 2
		if agent.Terminal != want || agent.Phase.IsTerminal != want {
			t.Fatalf("agent %d terminal=%t, want %t", i, agent.Terminal, want)
		}
		if agent.Index != i {
			t.Fatalf("agent %d has index %d", i, agent.Index)
		}
	}
	if agents[1].Name() != "deep_dive" {
		t.Fatalf("unexpected agent name %q", agents[1].Name())
	}
	if !reflect.DeepEqual(agents[0].Tools(), []Command{CommandAdvance, CommandEndEarly}) {
		t.Fatalf("unexpected non-terminal tools: %v", agents[0].Tools())
	}
	if agents[0].Allows(CommandEndNormally) || !agents[2].Allows(CommandEndNormally) || agents[2].Allows(CommandAdvance) {
		t.Fatal("tool surface does not match terminal flag")
	}
}

func TestBuildInstructionsSections(t *testing.T) {
	brief := Brief{
		CandidateName:    "Ada",
		CandidateContext: strings.Repeat("x", 450),
		Guidelines:       "pace: relaxed",
		TopicsToAvoid:    []string{"salary", "age"},
		Hints:            []string{"h1", "h2", "h3", "h4"},
	}
	p := interviewmodel.Phase{
		Name: "Deep Dive",
		Goal: "Explore projects",
		Questions: []interviewmodel.Question{
			{Text: "Tell me about the compiler.", FollowUpIf: "they mention parsing", FollowUpQuestion: "Which parser?"},
			{Text: "What broke?"},
		},
	}

	got := BuildInstructions("BASE", p, false, brief)
	for _, want := range []string{
		"BASE\n\nCANDIDATE: " + strings.Repeat("x", 400) + "\n",
		"CONVERSATION GUIDELINES:\npace: relaxed",
		"YOUR PHASE: Deep Dive\nGOAL: Explore projects",
		"- Tell me about the compiler.\n  (if they mention parsing: Which parser?)\n- What broke?\n",
		"Do NOT ask about: salary, age",
		"Personalization tips: h1, h2, h3\n",
		"call move_to_next_phase() to continue",
		"call early_exit() IMMEDIATELY",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("instructions missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, strings.Repeat("x", 401)) || strings.Contains(got, "h4") {
		t.Fatal("candidate context or hints were not truncated")
	}
	if strings.Contains(got, "end_interview") {
		t.Fatal("non-terminal agent must not be told to end the interview")
	}

	terminal := BuildInstructions("BASE", p, true, Brief{})
	if !strings.Contains(terminal, "Call end_interview() IMMEDIATELY") || strings.Contains(terminal, "move_to_next_phase") {
		t.Fatalf("unexpected terminal instructions:\n%s", terminal)
	}
	if strings.Contains(terminal, "Do NOT ask about") || strings.Contains(terminal, "CONVERSATION GUIDELINES") {
		t.Fatal("empty sections must be omitted")
	}
}

func TestBuildInstructionsTruncatesByRune(t *testing.T) {
	ctx := strings.Repeat("é", 401)
	got := BuildInstructions("", interviewmodel.Phase{Name: "A"}, true, Brief{CandidateContext: ctx})
	if !strings.Contains(got, "CANDIDATE: "+strings.Repeat("é", 400)+"\n") {
		t.Fatal("expected rune-safe truncation")
	}
}

func TestFallbackSourceBuildsSingleAgent(t *testing.T) {
	phases, brief, multi := resolveSource(SessionConfig{SessionID: "s", CandidateName: "Ada"})
	if multi || len(phases) != 1 {
		t.Fatalf("expected single agent, got multi=%t phases=%d", multi, len(phases))
	}
	agents := BuildAgents(phases, brief, ai.NewPromptManager())
	if !agents[0].Terminal {
		t.Fatal("single agent must be terminal")
	}
	if !strings.Contains(agents[0].Instructions, "Can you tell me about yourself") {
		t.Fatalf("fallback questions missing:\n%s", agents[0].Instructions)
	}
	if !strings.Contains(agents[0].Instructions, "Personalization tips: Use their name, Be encouraging") {
		t.Fatalf("fallback hints missing:\n%s", agents[0].Instructions)
	}
}

func TestBriefingSourceUsedWithoutPlan(t *testing.T) {
	briefing := &interviewmodel.Briefing{
		CandidateContext: "Ada builds compilers.",
		Guidelines:       "Be curious.",
		QuestionsScript:  []interviewmodel.ScriptItem{{Question: "Why compilers?"}},
	}
	phases, brief, multi := resolveSource(SessionConfig{Briefing: briefing, Plan: &interviewmodel.InterviewPlan{}})
	if multi || len(phases) != 1 || phases[0].Questions[0].Text != "Why compilers?" {
		t.Fatalf("unexpected briefing source: multi=%t phases=%+v", multi, phases)
	}
	if brief.CandidateContext != "Ada builds compilers." || brief.Guidelines != "Be curious." {
		t.Fatalf("unexpected brief: %+v", brief)
	}
}

func TestCommandToolNames(t *testing.T) {
	for _, cmd := range []Command{CommandAdvance, CommandEndNormally, CommandEndEarly} {
		got, ok := ParseCommand(cmd.ToolName())
		if !ok || got != cmd {
			t.Fatalf("ParseCommand(%q) = %v, %t", cmd.ToolName(), got, ok)
		}
		if cmd.Description() == "" {
			t.Fatalf("%s has no description", cmd)
		}
	}
	if _, ok := ParseCommand("transfer_funds"); ok {
		t.Fatal("unknown tool must not parse")
	}
	if CommandNone.String() != "none" {
		t.Fatalf("unexpected none name %q", CommandNone.String())
	}
}
