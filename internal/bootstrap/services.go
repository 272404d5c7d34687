// Package bootstrap assembles the services shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/model/tenant"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/enhancement"
	"github.com/zhouzirui/z-interview/backend/internal/service/extraction"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/prep"
	"github.com/zhouzirui/z-interview/backend/internal/service/realtime"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
	"github.com/zhouzirui/z-interview/backend/internal/storage/local"
	"github.com/zhouzirui/z-interview/backend/internal/storage/memory"
)

// Services holds everything built from configuration. ChatModel, Pipeline,
// Generator and Enhancer are nil when no model credentials are configured.
type Services struct {
	Store     storage.Store
	Tenants   *tenant.MemoryStore
	Prompts   *ai.PromptManager
	ChatModel model.ChatModel
	Pipeline  *prep.Pipeline
	Generator *realtime.Generator
	Extractor *extraction.Service
	Enhancer  *enhancement.Service
}

// ModelFactory creates a fresh chat model instance.
type ModelFactory func(ctx context.Context) (model.ChatModel, error)

// Build wires storage, tenants, prompts and the model-backed services.
func Build(ctx context.Context, cfg *config.Config) (*Services, error) {
	return BuildWithModels(ctx, cfg, cfg.AI.NewChatModel)
}

// BuildWithModels is Build with the chat model constructor supplied. The
// realtime generator gets an instance of its own; the completion chains share
// another.
func BuildWithModels(ctx context.Context, cfg *config.Config, newModel ModelFactory) (*Services, error) {
	store, err := NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	tenants, err := tenant.LoadDir(cfg.Pipeline.TenantsDir)
	if err != nil {
		return nil, err
	}
	log.Printf("[bootstrap] loaded %d tenant(s) from %s", len(tenants), cfg.Pipeline.TenantsDir)

	prompts, err := ai.LoadPromptManager(cfg.Pipeline.PromptsFile)
	if err != nil {
		return nil, err
	}

	svc := &Services{
		Store:   store,
		Tenants: tenant.NewMemoryStore(tenants),
		Prompts: prompts,
	}

	if cfg.AI.Enabled() {
		chatModel, err := newModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			svc.ChatModel = chatModel
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	if svc.ChatModel != nil {
		aiService, err := ai.NewService(ctx, svc.ChatModel, prompts)
		if err != nil {
			return nil, err
		}
		svc.Pipeline = prep.NewFromCompleter(aiService, aiService.Prompts(), prep.Options{
			StageTimeout: cfg.Pipeline.StageTimeout,
			Sink:         prep.MultiSink{prep.LogSink{}, prep.StoreSink{Store: store}},
		})

		svc.Enhancer, err = enhancement.NewService(ctx, aiService.GetChatModel(), prompts)
		if err != nil {
			return nil, err
		}

		turnModel, err := newModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("create realtime chat model: %w", err)
		}
		svc.Generator, err = realtime.NewGenerator(turnModel)
		if err != nil {
			return nil, err
		}
		log.Println("AI service initialized successfully")
	}

	svc.Extractor, err = extraction.NewService(ctx, svc.ChatModel, prompts, extraction.Config{Enabled: cfg.AI.ExtractionEnabled})
	if err != nil {
		return nil, err
	}
	if !svc.Extractor.Enabled() {
		log.Println("Profile extraction disabled, sessions will store an empty profile")
	}

	return svc, nil
}

// NewStore picks the artifact store named by cfg.Driver.
func NewStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "", "local":
		return local.NewStore(cfg.DataDir)
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// InterviewOptions maps configuration onto session options.
func InterviewOptions(cfg config.InterviewConfig) interviewService.Options {
	carryover := cfg.CarryoverTurns
	if carryover == 0 {
		carryover = -1
	}
	inactivity := cfg.InactivityTimeout
	if inactivity == 0 {
		inactivity = -1
	}
	return interviewService.Options{
		CarryoverTurns:     carryover,
		MinSessionDuration: cfg.MinSessionDuration,
		GenerateTimeout:    cfg.GenerateTimeout,
		FlushTimeout:       cfg.FlushTimeout,
		InactivityTimeout:  inactivity,
		InactivityInterval: cfg.InactivityInterval,
	}
}
