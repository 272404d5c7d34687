package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Interview InterviewConfig
	Pipeline  PipelineConfig
	Storage   StorageConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	interview, err := loadInterviewConfig()
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Interview: interview,
		Pipeline:  pipeline,
		Storage:   loadStorageConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
	// CORSOrigins 为空或包含 "*" 时允许任意来源。
	CORSOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, CORSOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigins: origins}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey            string
	AccessKey         string
	SecretKey         string
	Model             string
	BaseURL           string
	Region            string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	ExtractionEnabled bool
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	extraction, err := parseBoolEnv("AI_EXTRACTION_ENABLED", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             strings.TrimSpace(os.Getenv("Model")),
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		ExtractionEnabled: extraction,
	}, nil
}

// InterviewConfig 描述语音面试会话的运行参数。
type InterviewConfig struct {
	InactivityTimeout  time.Duration
	InactivityInterval time.Duration
	MinSessionDuration time.Duration
	GenerateTimeout    time.Duration
	FlushTimeout       time.Duration
	CarryoverTurns     int
	ModelProvider      string
}

func loadInterviewConfig() (InterviewConfig, error) {
	inactivity, err := parseDurationSecondsEnv("INTERVIEW_INACTIVITY_TIMEOUT", 300*time.Second)
	if err != nil {
		return InterviewConfig{}, err
	}

	interval, err := parseDurationSecondsEnv("INTERVIEW_INACTIVITY_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return InterviewConfig{}, err
	}

	minDuration, err := parseDurationSecondsEnv("INTERVIEW_MIN_SESSION_DURATION", 10*time.Second)
	if err != nil {
		return InterviewConfig{}, err
	}

	generate, err := parseDurationSecondsEnv("INTERVIEW_GENERATE_TIMEOUT", 30*time.Second)
	if err != nil {
		return InterviewConfig{}, err
	}

	flush, err := parseDurationSecondsEnv("INTERVIEW_FLUSH_TIMEOUT", 5*time.Second)
	if err != nil {
		return InterviewConfig{}, err
	}

	carryover := 8
	if override, err := parseOptionalIntEnv("INTERVIEW_CARRYOVER_TURNS"); err != nil {
		return InterviewConfig{}, err
	} else if override != nil {
		if *override < 0 {
			carryover = 0
		} else {
			carryover = *override
		}
	}

	return InterviewConfig{
		InactivityTimeout:  inactivity,
		InactivityInterval: interval,
		MinSessionDuration: minDuration,
		GenerateTimeout:    generate,
		FlushTimeout:       flush,
		CarryoverTurns:     carryover,
		ModelProvider:      getEnvOrDefault("INTERVIEW_MODEL_PROVIDER", "ark"),
	}, nil
}

// PipelineConfig 描述面试准备流水线。
type PipelineConfig struct {
	StageTimeout time.Duration
	PromptsFile  string
	TenantsDir   string
}

func loadPipelineConfig() (PipelineConfig, error) {
	stageTimeout, err := parseDurationSecondsEnv("PIPELINE_STAGE_TIMEOUT", 60*time.Second)
	if err != nil {
		return PipelineConfig{}, err
	}

	return PipelineConfig{
		StageTimeout: stageTimeout,
		PromptsFile:  strings.TrimSpace(os.Getenv("PROMPTS_FILE")),
		TenantsDir:   getEnvOrDefault("TENANTS_DIR", "config/tenants"),
	}, nil
}

// StorageConfig 描述会话产物的存储位置。
type StorageConfig struct {
	// Driver 取值 local 或 memory。
	Driver  string
	DataDir string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:  strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "local")),
		DataDir: getEnvOrDefault("DATA_DIR", "data/sessions"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseDurationSecondsEnv 读取以秒为单位的整数，也接受 "90s"、"5m" 这样的写法。
func parseDurationSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
