package prep

import (
	"context"
	"log"
	"time"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
)

// DefaultName identifies this pipeline in traces.
const DefaultName = "interview_prep"

// Request is the input of one preparation run.
type Request struct {
	SessionID     string
	CandidateName string
	LifeStage     interview.LifeStage
	ResumeData    map[string]any
	Tenant        *tenant.Context
}

// Result always carries a schedulable plan and briefing.
type Result struct {
	SessionID    string                     `json:"session_id"`
	Plan         *interview.InterviewPlan   `json:"interview_plan"`
	Briefing     *interview.Briefing        `json:"interview_briefing"`
	Analysis     *interview.ProfileAnalysis `json:"profile_analysis,omitempty"`
	LifeStage    interview.LifeStage        `json:"life_stage"`
	Errors       []string                   `json:"errors"`
	UsedFallback bool                       `json:"used_fallback"`
	Trace        *interview.PipelineTrace   `json:"-"`
}

// EventType labels Observer notifications.
type EventType string

const (
	EventStageStarted  EventType = "stage_started"
	EventStageFinished EventType = "stage_finished"
	EventFallback      EventType = "fallback"
)

// Event reports pipeline progress to an Observer.
type Event struct {
	Type  EventType             `json:"type"`
	Stage string                `json:"stage,omitempty"`
	Trace *interview.StageTrace `json:"trace,omitempty"`
}

// Observer is called synchronously from Run; it must not block.
type Observer func(Event)

// Options tunes a Pipeline.
type Options struct {
	Name         string
	StageTimeout time.Duration
	Sink         TraceSink
	Now          func() time.Time
}

// Pipeline sequences Analyzer, Planner and Briefer with a single fallback path.
type Pipeline struct {
	analyzer Stage[AnalyzerInput, *interview.ProfileAnalysis]
	planner  Stage[PlannerInput, *interview.InterviewPlan]
	briefer  Stage[BrieferInput, *interview.Briefing]

	name         string
	stageTimeout time.Duration
	sink         TraceSink
	now          func() time.Time
}

// New assembles a pipeline from explicit stages.
func New(
	analyzer Stage[AnalyzerInput, *interview.ProfileAnalysis],
	planner Stage[PlannerInput, *interview.InterviewPlan],
	briefer Stage[BrieferInput, *interview.Briefing],
	opts Options,
) *Pipeline {
	p := &Pipeline{
		analyzer:     analyzer,
		planner:      planner,
		briefer:      briefer,
		name:         opts.Name,
		stageTimeout: opts.StageTimeout,
		sink:         opts.Sink,
		now:          opts.Now,
	}
	if p.name == "" {
		p.name = DefaultName
	}
	if p.sink == nil {
		p.sink = LogSink{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// NewFromCompleter wires the three model-backed stages to one completer.
func NewFromCompleter(completer Completer, prompts *ai.PromptManager, opts Options) *Pipeline {
	return New(
		NewAnalyzer(completer, prompts),
		NewPlanner(completer, prompts),
		NewBriefer(completer, prompts),
		opts,
	)
}

type runState struct {
	trace    *interview.PipelineTrace
	observer Observer
}

func (r *runState) emit(ev Event) {
	if r.observer != nil {
		r.observer(ev)
	}
}

// Run executes the pipeline. It never fails; any stage error yields the fallback.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	return p.RunObserved(ctx, req, nil)
}

// RunObserved is Run with progress notifications.
func (p *Pipeline) RunObserved(ctx context.Context, req Request, observer Observer) *Result {
	started := p.now()
	lifeStage := req.LifeStage
	if !lifeStage.Valid() {
		lifeStage = interview.ParseLifeStage(string(lifeStage))
	}

	state := &runState{
		observer: observer,
		trace: &interview.PipelineTrace{
			SessionID:     req.SessionID,
			PipelineName:  p.name,
			CandidateName: req.CandidateName,
			LifeStage:     lifeStage,
			StartedAt:     started,
			Stages:        []interview.StageTrace{},
			Errors:        []string{},
		},
	}
	result := &Result{SessionID: req.SessionID, LifeStage: lifeStage, Errors: []string{}}
	candidate := Candidate{Name: req.CandidateName, LifeStage: lifeStage, Tenant: req.Tenant}

	log.Printf("[prep] run started session=%s candidate=%s life_stage=%s", req.SessionID, req.CandidateName, lifeStage)

	analysis, err := runStage(ctx, p, state, p.analyzer, AnalyzerInput{Candidate: candidate, Resume: req.ResumeData})
	if err != nil {
		return p.finish(ctx, state, p.fallback(state, result, req, err))
	}
	result.Analysis = analysis
	if analysis.LifeStage.Valid() && analysis.LifeStage != candidate.LifeStage {
		log.Printf("[prep] analyzer corrected life stage %s -> %s", candidate.LifeStage, analysis.LifeStage)
		candidate.LifeStage = analysis.LifeStage
		result.LifeStage = analysis.LifeStage
		state.trace.LifeStage = analysis.LifeStage
	}

	plan, err := runStage(ctx, p, state, p.planner, PlannerInput{Candidate: candidate, Analysis: analysis})
	if err != nil {
		return p.finish(ctx, state, p.fallback(state, result, req, err))
	}

	briefing, err := runStage(ctx, p, state, p.briefer, BrieferInput{Candidate: candidate, Analysis: analysis, Plan: plan})
	if err != nil {
		return p.finish(ctx, state, p.fallback(state, result, req, err))
	}

	result.Plan = plan
	result.Briefing = briefing
	return p.finish(ctx, state, result)
}

func runStage[In, Out any](ctx context.Context, p *Pipeline, state *runState, stage Stage[In, Out], in In) (Out, error) {
	name := stage.Name()
	state.emit(Event{Type: EventStageStarted, Stage: name})

	stageCtx := ctx
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	begin := p.now()
	out, err := stage.Run(stageCtx, in)
	entry := interview.StageTrace{
		Name:       name,
		DurationMs: p.now().Sub(begin).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		stageErr := asStageError(name, err)
		entry.ErrorKind = string(stageErr.Kind)
		entry.Error = stageErr.Err.Error()
		err = stageErr
		log.Printf("[prep] stage %s failed after %dms: %v", name, entry.DurationMs, stageErr)
	} else {
		log.Printf("[prep] stage %s finished in %dms", name, entry.DurationMs)
	}

	state.trace.Stages = append(state.trace.Stages, entry)
	state.emit(Event{Type: EventStageFinished, Stage: name, Trace: &entry})
	return out, err
}

func (p *Pipeline) fallback(state *runState, result *Result, req Request, cause error) *Result {
	result.Errors = append(result.Errors, cause.Error())
	result.Plan = FallbackPlan(req.CandidateName)
	result.Briefing = FallbackBriefing(req.CandidateName)
	result.UsedFallback = true
	state.emit(Event{Type: EventFallback})
	log.Printf("[prep] routing session=%s to fallback plan", req.SessionID)
	return result
}

func (p *Pipeline) finish(ctx context.Context, state *runState, result *Result) *Result {
	trace := state.trace
	trace.TotalMs = p.now().Sub(trace.StartedAt).Milliseconds()
	trace.Errors = append(trace.Errors, result.Errors...)
	trace.UsedFallback = result.UsedFallback
	result.Trace = trace

	if err := p.sink.Record(context.WithoutCancel(ctx), trace); err != nil {
		log.Printf("[prep] trace sink failed for session=%s: %v", trace.SessionID, err)
	}
	return result
}
