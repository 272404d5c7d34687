package prep

import (
	"context"
	"fmt"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
)

// Stage names as they appear in traces.
const (
	StageAnalyzer = "profile_analyzer"
	StagePlanner  = "question_planner"
	StageBriefer  = "interview_briefer"
)

// Analyzer extracts strengths, gaps and hooks from a resume.
type Analyzer struct {
	stage jsonStage
}

// NewAnalyzer builds the Analyzer stage.
func NewAnalyzer(completer Completer, prompts *ai.PromptManager) *Analyzer {
	return &Analyzer{stage: newJSONStage(StageAnalyzer, completer, prompts, ai.PromptAnalyzerSystem, ai.PromptAnalyzerUser)}
}

func (a *Analyzer) Name() string { return StageAnalyzer }

func (a *Analyzer) Run(ctx context.Context, in AnalyzerInput) (*interview.ProfileAnalysis, error) {
	if len(in.Resume) == 0 {
		return nil, &StageError{Stage: StageAnalyzer, Kind: KindValidation, Err: fmt.Errorf("resume data is empty")}
	}

	vars := in.vars()
	vars["resume_json"] = marshalIndent(in.Resume)

	var analysis interview.ProfileAnalysis
	if err := a.stage.run(ctx, vars, in.Tenant, &analysis, analysis.Validate); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// Planner designs the phased question plan.
type Planner struct {
	stage jsonStage
}

// NewPlanner builds the Planner stage.
func NewPlanner(completer Completer, prompts *ai.PromptManager) *Planner {
	return &Planner{stage: newJSONStage(StagePlanner, completer, prompts, ai.PromptPlannerSystem, ai.PromptPlannerUser)}
}

func (p *Planner) Name() string { return StagePlanner }

func (p *Planner) Run(ctx context.Context, in PlannerInput) (*interview.InterviewPlan, error) {
	vars := in.vars()
	vars["profile_analysis_json"] = marshalIndent(in.Analysis)

	var plan interview.InterviewPlan
	if err := p.stage.run(ctx, vars, in.Tenant, &plan, plan.Validate); err != nil {
		return nil, err
	}
	return plan.Normalized(), nil
}

// Briefer turns analysis and plan into the voice agent briefing.
type Briefer struct {
	stage jsonStage
}

// NewBriefer builds the Briefer stage.
func NewBriefer(completer Completer, prompts *ai.PromptManager) *Briefer {
	return &Briefer{stage: newJSONStage(StageBriefer, completer, prompts, ai.PromptBrieferSystem, ai.PromptBrieferUser)}
}

func (b *Briefer) Name() string { return StageBriefer }

func (b *Briefer) Run(ctx context.Context, in BrieferInput) (*interview.Briefing, error) {
	vars := in.vars()
	vars["profile_analysis_json"] = marshalIndent(in.Analysis)
	vars["interview_plan_json"] = marshalIndent(in.Plan)

	var briefing interview.Briefing
	if err := b.stage.run(ctx, vars, in.Tenant, &briefing, briefing.Validate); err != nil {
		return nil, err
	}
	return &briefing, nil
}

func newJSONStage(name string, completer Completer, prompts *ai.PromptManager, systemName, userName string) jsonStage {
	if prompts == nil {
		prompts = ai.NewPromptManager()
	}
	return jsonStage{
		name:       name,
		completer:  completer,
		prompts:    prompts,
		systemName: systemName,
		userName:   userName,
	}
}
