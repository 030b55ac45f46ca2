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

// Config 聚合整個服務的配置項。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Line   LineConfig
	Relay  RelayConfig
}

// Load 從環境變數載入配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	line, err := loadLineConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Line: line, Relay: relay}, nil
}

// ServerConfig 描述 HTTP 服務配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析伺服器監聽位址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允許使用者直接傳入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相關配置。
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	RequestTimeout time.Duration
}

// Enabled 表示是否提供了必需的憑證。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置建立一個模型實例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 憑證或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 組合")
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

	timeout, err := parseDurationSecondsEnv("AI_REQUEST_TIMEOUT", 8*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		RequestTimeout: timeout,
	}, nil
}

// LineConfig 描述 LINE Messaging API 相關配置。
type LineConfig struct {
	ChannelSecret string
	ChannelToken  string
	APIBaseURL    string
	ReplyTimeout  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Enabled 表示 webhook 入口是否具備必需的頻道憑證。
func (c LineConfig) Enabled() bool {
	return c.ChannelSecret != "" && c.ChannelToken != ""
}

func loadLineConfig() (LineConfig, error) {
	replyTimeout, err := parseDurationSecondsEnv("LINE_REPLY_TIMEOUT", 10*time.Second)
	if err != nil {
		return LineConfig{}, err
	}

	maxRetries := 2
	if override, err := parseOptionalIntEnv("LINE_REPLY_MAX_RETRIES"); err != nil {
		return LineConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return LineConfig{}, fmt.Errorf("LINE_REPLY_MAX_RETRIES must not be negative, got %d", *override)
		}
		maxRetries = *override
	}

	backoff, err := parseDurationSecondsEnv("LINE_REPLY_RETRY_BACKOFF", 1*time.Second)
	if err != nil {
		return LineConfig{}, err
	}

	return LineConfig{
		ChannelSecret: strings.TrimSpace(os.Getenv("LINE_CHANNEL_SECRET")),
		ChannelToken:  strings.TrimSpace(os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")),
		APIBaseURL:    getEnvOrDefault("LINE_API_BASE_URL", "https://api.line.me"),
		ReplyTimeout:  replyTimeout,
		MaxRetries:    maxRetries,
		RetryBackoff:  backoff,
	}, nil
}

// RelayConfig 描述事件轉發管線的通用邊界。
type RelayConfig struct {
	MaxTextLength int
}

func loadRelayConfig() (RelayConfig, error) {
	maxText := 1000
	if override, err := parseOptionalIntEnv("RELAY_MAX_TEXT_LENGTH"); err != nil {
		return RelayConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RelayConfig{}, fmt.Errorf("RELAY_MAX_TEXT_LENGTH must be positive, got %d", *override)
		}
		maxText = *override
	}

	return RelayConfig{MaxTextLength: maxText}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return defaultValue, nil
	}
	if *raw < 1 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, *raw)
	}
	return time.Duration(*raw) * time.Second, nil
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
