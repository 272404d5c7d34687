// Package aitest provides a scripted eino chat model for tests.
package aitest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrExhausted is returned once every scripted response has been consumed.
var ErrExhausted = errors.New("aitest: no scripted response left")

// Call records one Generate invocation.
type Call struct {
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

// Model replays Responses in order, or delegates to Handler when set.
type Model struct {
	Responses []*schema.Message
	Err       error
	Handler   func(ctx context.Context, input []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)

	mu    sync.Mutex
	calls []Call
	bound []*schema.ToolInfo
}

var (
	_ model.ChatModel            = (*Model)(nil)
	_ model.ToolCallingChatModel = (*Model)(nil)
)

// Text is shorthand for a model scripted with plain assistant replies.
func Text(replies ...string) *Model {
	m := &Model{}
	for _, reply := range replies {
		m.Responses = append(m.Responses, schema.AssistantMessage(reply, nil))
	}
	return m
}

func (m *Model) generate(ctx context.Context, input []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Messages: input, Tools: tools})
	handler := m.Handler
	if handler == nil {
		defer m.mu.Unlock()
		if m.Err != nil {
			return nil, m.Err
		}
		if len(m.Responses) == 0 {
			return nil, ErrExhausted
		}
		next := m.Responses[0]
		m.Responses = m.Responses[1:]
		return next, nil
	}
	m.mu.Unlock()
	return handler(ctx, input, tools)
}

// Generate implements model.BaseChatModel.
func (m *Model) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	tools := m.bound
	m.mu.Unlock()
	return m.generate(ctx, input, tools)
}

// Stream emits the generated message as a single chunk.
func (m *Model) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools implements model.ChatModel.
func (m *Model) BindTools(tools []*schema.ToolInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound = tools
	return nil
}

// WithTools returns a view that reports tools on every call.
func (m *Model) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &toolView{parent: m, tools: tools}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

type toolView struct {
	parent *Model
	tools  []*schema.ToolInfo
}

func (v *toolView) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return v.parent.generate(ctx, input, v.tools)
}

func (v *toolView) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := v.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (v *toolView) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &toolView{parent: v.parent, tools: tools}, nil
}
