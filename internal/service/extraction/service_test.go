package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"

	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai/aitest"
)

var sampleTranscript = []interviewmodel.TranscriptEntry{
	{Role: interviewmodel.RoleAgent, Text: "Hi! What is your name?"},
	{Role: interviewmodel.RoleUser, Text: "I'm Ada from London."},
	{Role: interviewmodel.RoleUser, Text: "   "},
}

func TestExtractParsesModelOutput(t *testing.T) {
	chatModel := aitest.Text("Here you go:\n```json\n{\"first_name\": \"Ada\", \"location\": \"London\"}\n```")
	svc, err := NewService(context.Background(), chatModel, nil, Config{Enabled: true})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	profile := svc.Extract(context.Background(), sampleTranscript)
	if profile["first_name"] != "Ada" || profile["location"] != "London" {
		t.Fatalf("unexpected profile: %v", profile)
	}

	calls := chatModel.Calls()
	if len(calls) != 1 || len(calls[0].Messages) != 2 {
		t.Fatalf("expected a single system+user call, got %+v", calls)
	}
	if calls[0].Messages[0].Role != schema.System {
		t.Fatalf("expected system prompt first, got %s", calls[0].Messages[0].Role)
	}
	if got := calls[0].Messages[1].Content; got != "AGENT: Hi! What is your name?\nUSER: I'm Ada from London." {
		t.Fatalf("unexpected transcript text %q", got)
	}
}

func TestExtractReturnsEmptyProfileOnFailure(t *testing.T) {
	cases := []struct {
		name  string
		model *aitest.Model
	}{
		{name: "transport", model: &aitest.Model{Err: errors.New("timeout")}},
		{name: "garbage", model: aitest.Text("no json here")},
		{name: "empty", model: aitest.Text("")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewService(context.Background(), tc.model, nil, Config{Enabled: true})
			if err != nil {
				t.Fatalf("NewService err: %v", err)
			}
			profile := svc.Extract(context.Background(), sampleTranscript)
			if profile == nil || len(profile) != 0 {
				t.Fatalf("expected empty profile, got %v", profile)
			}
		})
	}
}

func TestExtractSkipsModelWhenDisabledOrEmpty(t *testing.T) {
	chatModel := aitest.Text(`{"first_name":"Ada"}`)

	disabled, err := NewService(context.Background(), chatModel, nil, Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if disabled.Enabled() || len(disabled.Extract(context.Background(), sampleTranscript)) != 0 {
		t.Fatal("disabled service must return an empty profile")
	}

	enabled, err := NewService(context.Background(), chatModel, nil, Config{Enabled: true})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if len(enabled.Extract(context.Background(), nil)) != 0 {
		t.Fatal("empty transcript must return an empty profile")
	}
	if len(chatModel.Calls()) != 0 {
		t.Fatalf("model must not be called, got %d calls", len(chatModel.Calls()))
	}

	noModel, err := NewService(context.Background(), nil, nil, Config{Enabled: true})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	if noModel.Enabled() {
		t.Fatal("service without a model must be disabled")
	}
}
