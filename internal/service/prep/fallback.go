package prep

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

var fallbackScript = []interview.ScriptItem{
	{Question: "Can you tell me about yourself and your background?", Notes: "Standard opener"},
	{Question: "What are your main career goals?", Notes: "Understand direction"},
	{Question: "What achievement are you most proud of?", Notes: "Explore highlights"},
	{Question: "What impact do you want to make?", Notes: "Closing question"},
}

// FallbackBriefing is the fixed briefing used when any stage fails.
func FallbackBriefing(candidateName string) *interview.Briefing {
	name := strings.TrimSpace(candidateName)
	if name == "" {
		name = "candidate"
	}

	script := make([]interview.ScriptItem, len(fallbackScript))
	copy(script, fallbackScript)

	return &interview.Briefing{
		CandidateContext:     fmt.Sprintf("Interview with %s. Some preparation steps failed.", name),
		Guidelines:           "Conduct a standard interview. Ask about their background, goals, and experiences.",
		QuestionsScript:      script,
		TopicsToAvoid:        []string{},
		PersonalizationHints: []string{"Use their name", "Be encouraging"},
	}
}

// FallbackPlan is the single terminal phase built from the fallback briefing.
func FallbackPlan(candidateName string) *interview.InterviewPlan {
	briefing := FallbackBriefing(candidateName)
	phase := briefing.AsPhase()
	phase.Goal = "Learn about the candidate's background, goals and achievements"
	phase.EstimatedDuration = "5-7 min"
	for i := range phase.Questions {
		phase.Questions[i].Priority = "high"
	}

	return &interview.InterviewPlan{
		TotalEstimatedDuration: "5-7 min",
		Phases:                 []interview.Phase{phase},
		AdaptiveNotes:          []string{"Preparation failed; keep the conversation general."},
	}
}
