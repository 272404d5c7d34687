// Package realtime drives interview agent turns through an eino chat model.
package realtime

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
)

// Generator implements interview.Generator on top of a chat model.
//
// Models without WithTools only accept tools through BindTools, which changes
// the model itself. Such a model must belong to the generator alone; tools are
// unbound again after every turn.
type Generator struct {
	chatModel model.ChatModel

	// bindMu serializes BindTools on models without WithTools support.
	bindMu sync.Mutex
}

var _ interview.Generator = (*Generator)(nil)

// NewGenerator wraps chatModel. Pass an instance that no other chain uses.
func NewGenerator(chatModel model.ChatModel) (*Generator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	return &Generator{chatModel: chatModel}, nil
}

// Generate runs one agent turn and reports the text, tool calls and usage.
func (g *Generator) Generate(ctx context.Context, req interview.TurnRequest) (*interview.TurnResult, error) {
	msg, err := g.generate(ctx, BuildMessages(req), ToolInfos(req.Tools))
	if err != nil {
		return nil, fmt.Errorf("generate turn for %s: %w", req.AgentName, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("generate turn for %s: empty response", req.AgentName)
	}

	result := &interview.TurnResult{
		Text:  strings.TrimSpace(msg.Content),
		Usage: usageOf(msg),
	}
	for _, call := range msg.ToolCalls {
		if name := strings.TrimSpace(call.Function.Name); name != "" {
			result.ToolCalls = append(result.ToolCalls, name)
		}
	}

	log.Printf("[realtime] session=%s agent=%s turn | text_len=%d | tool_calls=%v",
		req.SessionID, req.AgentName, len(result.Text), result.ToolCalls)
	return result, nil
}

// generate calls the model with tools attached for this call only. An empty
// tool list is never bound.
func (g *Generator) generate(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	if tc, ok := g.chatModel.(model.ToolCallingChatModel); ok {
		if len(tools) == 0 {
			return tc.Generate(ctx, messages)
		}
		bound, err := tc.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		return bound.Generate(ctx, messages)
	}

	g.bindMu.Lock()
	defer g.bindMu.Unlock()
	if len(tools) == 0 {
		return g.chatModel.Generate(ctx, messages)
	}
	if err := g.chatModel.BindTools(tools); err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	defer func() {
		if err := g.chatModel.BindTools(nil); err != nil {
			log.Printf("[realtime] unbind tools failed: %v", err)
		}
	}()
	return g.chatModel.Generate(ctx, messages)
}

// BuildMessages renders the agent instructions, its private context and the
// turn directive as chat messages.
func BuildMessages(req interview.TurnRequest) []*schema.Message {
	messages := make([]*schema.Message, 0, len(req.Context)+2)
	messages = append(messages, schema.SystemMessage(req.Instructions))

	for _, turn := range req.Context {
		switch turn.Role {
		case interview.TurnUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case interview.TurnAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}

	if directive := strings.TrimSpace(req.Directive); directive != "" {
		messages = append(messages, schema.SystemMessage(directive))
	}
	return messages
}

// ToolInfos describes the commands as parameterless function tools.
func ToolInfos(commands []interview.Command) []*schema.ToolInfo {
	tools := make([]*schema.ToolInfo, 0, len(commands))
	for _, cmd := range commands {
		tools = append(tools, &schema.ToolInfo{
			Name: cmd.ToolName(),
			Desc: cmd.Description(),
		})
	}
	return tools
}

func usageOf(msg *schema.Message) interviewmodel.Usage {
	if msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return interviewmodel.Usage{}
	}
	u := msg.ResponseMeta.Usage
	return interviewmodel.Usage{
		InputTokens:      u.PromptTokens,
		OutputTokens:     u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		TextInputTokens:  u.PromptTokens,
		TextOutputTokens: u.CompletionTokens,
	}
}
