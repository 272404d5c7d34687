package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Service 封装单轮补全：system prompt + 可选历史 + 用户输入。
type Service struct {
	chatModel model.ChatModel
	prompts   *PromptManager
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the completion chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, prompts *PromptManager) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if prompts == nil {
		prompts = NewPromptManager()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		prompts:   prompts,
		chain:     runnable,
	}, nil
}

// Complete runs one system/user exchange through the chain.
func (s *Service) Complete(ctx context.Context, system, query string) (*schema.Message, error) {
	return s.CompleteWithHistory(ctx, system, nil, query)
}

// CompleteWithHistory is Complete with prior messages inserted before the query.
func (s *Service) CompleteWithHistory(ctx context.Context, system string, history []*schema.Message, query string) (*schema.Message, error) {
	input := map[string]any{
		"system": system,
		"query":  query,
	}
	if len(history) > 0 {
		input["history"] = history
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run completion chain: %w", err)
	}
	if response == nil {
		return nil, fmt.Errorf("completion chain returned no message")
	}

	log.Printf("[ai] completion finished, length=%d", len(response.Content))
	return response, nil
}

// Prompts returns the prompt configuration backing this service.
func (s *Service) Prompts() *PromptManager {
	return s.prompts
}

// GetChatModel 返回底层的聊天模型
func (s *Service) GetChatModel() model.ChatModel {
	return s.chatModel
}
