// Package prep turns a resume into an interview plan through three model-backed stages.
package prep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
)

// Stage is one typed step of the pipeline.
type Stage[In, Out any] interface {
	Name() string
	Run(ctx context.Context, in In) (Out, error)
}

// ErrorKind classifies a stage failure. Every kind routes to the fallback.
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindParse      ErrorKind = "parse"
	KindValidation ErrorKind = "validation"
)

// StageError wraps a failed stage with its classification.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s error: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// asStageError classifies err, treating unknown errors as transport failures.
func asStageError(stage string, err error) *StageError {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}
	return &StageError{Stage: stage, Kind: KindTransport, Err: err}
}

// Candidate carries the prompt variables shared by every stage.
type Candidate struct {
	Name      string
	LifeStage interview.LifeStage
	Tenant    *tenant.Context
}

func (c Candidate) vars() map[string]string {
	name := c.Name
	if name == "" {
		name = "candidate"
	}
	return map[string]string{
		"user_name":  name,
		"life_stage": string(c.LifeStage),
	}
}

// AnalyzerInput is the resume handed to the Analyzer.
type AnalyzerInput struct {
	Candidate
	Resume map[string]any
}

// PlannerInput feeds the Planner.
type PlannerInput struct {
	Candidate
	Analysis *interview.ProfileAnalysis
}

// BrieferInput feeds the Briefer.
type BrieferInput struct {
	Candidate
	Analysis *interview.ProfileAnalysis
	Plan     *interview.InterviewPlan
}

// Completer is the single model call a stage performs.
type Completer interface {
	Complete(ctx context.Context, system, query string) (*schema.Message, error)
}

// jsonStage renders prompts, calls the model once, decodes and validates the JSON reply.
type jsonStage struct {
	name       string
	completer  Completer
	prompts    *ai.PromptManager
	systemName string
	userName   string
}

func (s jsonStage) run(ctx context.Context, vars map[string]string, tc *tenant.Context, out any, validate func() error) error {
	system, err := s.prompts.Render(s.systemName, vars)
	if err != nil {
		return &StageError{Stage: s.name, Kind: KindTransport, Err: err}
	}
	user, err := s.prompts.Render(s.userName, vars)
	if err != nil {
		return &StageError{Stage: s.name, Kind: KindTransport, Err: err}
	}
	if block := tc.PromptBlock(); block != "" {
		user += "\n\n" + block
	}

	msg, err := s.completer.Complete(ctx, system, user)
	if err != nil {
		return &StageError{Stage: s.name, Kind: KindTransport, Err: err}
	}
	if msg == nil {
		return &StageError{Stage: s.name, Kind: KindParse, Err: fmt.Errorf("empty response")}
	}

	if err := ai.DecodeJSONObject(msg.Content, out); err != nil {
		return &StageError{Stage: s.name, Kind: KindParse, Err: err}
	}
	if err := validate(); err != nil {
		return &StageError{Stage: s.name, Kind: KindValidation, Err: err}
	}
	return nil
}

func marshalIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
