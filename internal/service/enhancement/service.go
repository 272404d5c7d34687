// Package enhancement merges a parsed resume with a finished interview into an enhanced resume.
package enhancement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/extraction"
)

var (
	// ErrDisabled is returned when no chat model backs the service.
	ErrDisabled = errors.New("resume enhancement unavailable")
	// ErrEmptyTranscript is returned when the interview has nothing to merge.
	ErrEmptyTranscript = errors.New("transcript is empty")
)

// Basics are the answers collected before the interview.
type Basics struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Request is one enhancement job.
type Request struct {
	Resume     map[string]any
	Transcript []interviewmodel.TranscriptEntry
	Analysis   *interviewmodel.ProfileAnalysis
	Basics     Basics
}

// Service 调用大模型生成增强简历。
type Service struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	prompts *ai.PromptManager
}

// NewService compiles the enhancement chain. A nil chatModel yields a disabled service.
func NewService(ctx context.Context, chatModel model.ChatModel, prompts *ai.PromptManager) (*Service, error) {
	if prompts == nil {
		prompts = ai.NewPromptManager()
	}
	svc := &Service{prompts: prompts}
	if chatModel == nil {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile enhancement chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// Enabled reports whether a model backs the service.
func (s *Service) Enabled() bool {
	return s != nil && s.chain != nil
}

// Enhance returns the merged resume with the candidate's own basics applied on top.
func (s *Service) Enhance(ctx context.Context, req Request) (interviewmodel.EnhancedResume, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	transcript := extraction.FormatTranscript(req.Transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	resume := req.Resume
	if resume == nil {
		resume = map[string]any{}
	}
	resumeJSON, err := json.MarshalIndent(resume, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode resume: %w", err)
	}
	analysisJSON := []byte("{}")
	if req.Analysis != nil {
		if analysisJSON, err = json.MarshalIndent(req.Analysis, "", "  "); err != nil {
			return nil, fmt.Errorf("encode analysis: %w", err)
		}
	}

	query := s.prompts.MustRender(ai.PromptEnhancerUser, map[string]string{
		"resume_json":     string(resumeJSON),
		"transcript_text": transcript,
		"analysis_json":   string(analysisJSON),
		"user_name":       candidateName(req),
	})
	msg, err := s.chain.Invoke(ctx, map[string]any{
		"system": s.prompts.MustRender(ai.PromptEnhancerSystem, nil),
		"query":  query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run enhancement chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("enhancement chain returned no content")
	}

	enhanced := interviewmodel.EnhancedResume{}
	if err := ai.DecodeJSONObject(msg.Content, &enhanced); err != nil {
		return nil, fmt.Errorf("parse enhanced resume: %w", err)
	}
	MergeBasics(enhanced, req.Basics)

	log.Printf("[enhancement] enhanced resume with %d section(s)", len(enhanced))
	return enhanced, nil
}

func candidateName(req Request) string {
	if name := strings.TrimSpace(req.Basics.Name); name != "" {
		return name
	}
	if basics, ok := req.Resume["basics"].(map[string]any); ok {
		if name, ok := basics["name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}
	return "Candidate"
}

// MergeBasics overwrites name and location with what the candidate answered directly.
func MergeBasics(resume interviewmodel.EnhancedResume, answers Basics) {
	name := strings.Fields(answers.Name)
	location := strings.TrimSpace(answers.Location)
	if len(name) == 0 && location == "" {
		return
	}

	basics, _ := resume["basics"].(map[string]any)
	if basics == nil {
		basics = map[string]any{}
		resume["basics"] = basics
	}

	if len(name) > 0 {
		basics["first_name"] = name[0]
		if len(name) > 1 {
			basics["last_name"] = strings.Join(name[1:], " ")
		}
	}

	if location != "" {
		loc, _ := basics["location"].(map[string]any)
		if loc == nil {
			loc = map[string]any{}
			basics["location"] = loc
		}
		parts := strings.Split(location, ",")
		if len(parts) >= 2 {
			loc["city"] = strings.TrimSpace(parts[0])
			loc["state"] = strings.TrimSpace(parts[len(parts)-1])
		} else {
			loc["city"] = location
		}
	}
}
