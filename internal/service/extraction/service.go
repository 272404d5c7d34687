// Package extraction derives a structured profile from a finished interview transcript.
package extraction

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

// Config 控制画像抽取服务。
type Config struct {
	Enabled bool
}

// Service 调用大模型抽取画像，任何失败都返回空画像。
type Service struct {
	enabled bool
	chain   compose.Runnable[map[string]any, *schema.Message]
	system  string
}

var _ interview.Extractor = (*Service)(nil)

// NewService compiles the extraction chain. A nil chatModel disables extraction.
func NewService(ctx context.Context, chatModel model.ChatModel, prompts *ai.PromptManager, cfg Config) (*Service, error) {
	if prompts == nil {
		prompts = ai.NewPromptManager()
	}
	svc := &Service{
		enabled: cfg.Enabled && chatModel != nil,
		system:  prompts.MustRender(ai.PromptExtraction, nil),
	}
	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{transcript}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction chain: %w", err)
	}
	svc.chain = runnable
	return svc, nil
}

// Enabled reports whether a model backs the service.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.chain != nil
}

// Extract returns the profile found in transcript, or an empty profile.
func (s *Service) Extract(ctx context.Context, transcript []interviewmodel.TranscriptEntry) interviewmodel.Profile {
	text := FormatTranscript(transcript)
	if text == "" || !s.Enabled() {
		return interviewmodel.Profile{}
	}

	msg, err := s.chain.Invoke(ctx, map[string]any{
		"system":     s.system,
		"transcript": text,
	})
	if err != nil {
		log.Printf("[extraction] invoke failed, returning empty profile: %v", err)
		return interviewmodel.Profile{}
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return interviewmodel.Profile{}
	}

	profile := interviewmodel.Profile{}
	if err := ai.DecodeJSONObject(msg.Content, &profile); err != nil {
		log.Printf("[extraction] output parse failed, returning empty profile: %v", err)
		return interviewmodel.Profile{}
	}
	log.Printf("[extraction] extracted %d profile fields", len(profile))
	return profile
}

// FormatTranscript renders entries as "ROLE: text" lines.
func FormatTranscript(transcript []interviewmodel.TranscriptEntry) string {
	lines := make([]string, 0, len(transcript))
	for _, entry := range transcript {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		lines = append(lines, strings.ToUpper(string(entry.Role))+": "+text)
	}
	return strings.Join(lines, "\n")
}
