package prep

import "testing"

func TestFallbackPlanShape(t *testing.T) {
	plan := FallbackPlan("")
	if err := plan.Validate(); err != nil {
		t.Fatalf("fallback plan must validate: %v", err)
	}
	if len(plan.Phases) != 1 || !plan.Phases[0].IsTerminal {
		t.Fatalf("fallback must be a single terminal phase: %+v", plan.Phases)
	}
	if plan.QuestionCount() != 4 {
		t.Fatalf("expected 4 questions, got %d", plan.QuestionCount())
	}

	briefing := FallbackBriefing("")
	if err := briefing.Validate(); err != nil {
		t.Fatalf("fallback briefing must validate: %v", err)
	}
	if briefing.CandidateContext != "Interview with candidate. Some preparation steps failed." {
		t.Fatalf("unexpected context: %q", briefing.CandidateContext)
	}

	// Callers may mutate their copy without affecting later runs.
	briefing.QuestionsScript[0].Question = "changed"
	if FallbackBriefing("").QuestionsScript[0].Question == "changed" {
		t.Fatal("fallback script leaked between calls")
	}
}
