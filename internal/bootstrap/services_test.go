package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	interviewmodel "github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai/aitest"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage/local"
	"github.com/zhouzirui/z-interview/backend/internal/storage/memory"
)

func TestNewStoreDrivers(t *testing.T) {
	store, err := NewStore(config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory driver err: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	store, err = NewStore(config.StorageConfig{Driver: "local", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("local driver err: %v", err)
	}
	if _, ok := store.(*local.Store); !ok {
		t.Fatalf("expected local store, got %T", store)
	}

	if _, err := NewStore(config.StorageConfig{Driver: "s3"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestBuildWithoutCredentials(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: "memory"},
		Pipeline: config.PipelineConfig{TenantsDir: t.TempDir()},
		AI:       config.AIConfig{ExtractionEnabled: true},
	}

	svc, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build err: %v", err)
	}
	if svc.ChatModel != nil || svc.Pipeline != nil || svc.Generator != nil || svc.Enhancer.Enabled() {
		t.Fatalf("expected model-backed services to be absent: %+v", svc)
	}
	if svc.Extractor == nil || svc.Extractor.Enabled() {
		t.Fatal("expected a disabled extractor")
	}
	if svc.Prompts == nil || svc.Tenants == nil {
		t.Fatal("expected prompts and tenants")
	}
}

func TestInterviewOptionsDisableZeroValues(t *testing.T) {
	opts := InterviewOptions(config.InterviewConfig{MinSessionDuration: 10 * time.Second})
	if opts.CarryoverTurns != -1 || opts.InactivityTimeout != -1 {
		t.Fatalf("expected zero config values to disable features: %+v", opts)
	}

	opts = InterviewOptions(config.InterviewConfig{CarryoverTurns: 4, InactivityTimeout: time.Minute})
	if opts.CarryoverTurns != 4 || opts.InactivityTimeout != time.Minute {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

// bindOnlyModel behaves like a chat model that only supports BindTools.
type bindOnlyModel struct{ inner *aitest.Model }

func (b bindOnlyModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return b.inner.Generate(ctx, in, opts...)
}

func (b bindOnlyModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return b.inner.Stream(ctx, in, opts...)
}

func (b bindOnlyModel) BindTools(tools []*schema.ToolInfo) error { return b.inner.BindTools(tools) }

func TestBuildGivesGeneratorItsOwnModel(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: "memory"},
		Pipeline: config.PipelineConfig{TenantsDir: t.TempDir()},
		AI:       config.AIConfig{APIKey: "key", Model: "model", ExtractionEnabled: true},
	}

	scripts := []string{`{"name":"Ada"}`, "Thanks for your time."}
	var created []*aitest.Model
	factory := func(context.Context) (model.ChatModel, error) {
		m := aitest.Text(scripts[len(created)%len(scripts)])
		created = append(created, m)
		return bindOnlyModel{inner: m}, nil
	}

	svc, err := BuildWithModels(context.Background(), cfg, factory)
	if err != nil {
		t.Fatalf("BuildWithModels err: %v", err)
	}
	if len(created) < 2 {
		t.Fatalf("expected separate model instances, got %d", len(created))
	}
	if svc.Generator == nil || svc.Pipeline == nil || !svc.Extractor.Enabled() || !svc.Enhancer.Enabled() {
		t.Fatalf("expected model-backed services: %+v", svc)
	}

	_, err = svc.Generator.Generate(context.Background(), interviewService.TurnRequest{
		SessionID:    "s1",
		AgentName:    "closing",
		Instructions: "Wrap up.",
		Tools:        []interviewService.Command{interviewService.CommandEndNormally},
	})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	profile := svc.Extractor.Extract(context.Background(), []interviewmodel.TranscriptEntry{
		{Role: interviewmodel.RoleUser, Text: "I'm Ada.", IsFinal: true},
	})
	if profile["name"] != "Ada" {
		t.Fatalf("expected extraction through the shared model, got %+v", profile)
	}

	shared, turns := created[0].Calls(), created[1].Calls()
	if len(turns) != 1 || len(turns[0].Tools) != 1 {
		t.Fatalf("expected the interview turn on its own model with tools, got %+v", turns)
	}
	if len(shared) != 1 || len(shared[0].Tools) != 0 {
		t.Fatalf("extraction must not see interview tools, got %+v", shared)
	}
}
