package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/go-playground/validator/v10"

	speechmodel "github.com/zhouzirui/seance/backend/internal/model/speech"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Socket  SocketConfig
	Spirit  SpiritConfig
	AI      AIConfig
	Speech  SpeechConfig
}

// environment 是环境变量的扁平映射，由 go-env 解码后再校验。
type environment struct {
	Port        string `env:"PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
	CORSOrigins string `env:"CORS_ORIGINS,default=http://localhost:3000"`

	SessionStore     string        `env:"SESSION_STORE,default=memory" validate:"oneof=memory badger redis"`
	BadgerPath       string        `env:"BADGER_PATH,default=./data/badger" validate:"required_if=SessionStore badger"`
	RedisURL         string        `env:"REDIS_URL" validate:"required_if=SessionStore redis"`
	RedisTTL         time.Duration `env:"REDIS_TTL,default=24h" validate:"min=0"`
	MaxSessionUsers  int           `env:"MAX_SESSION_USERS,default=6" validate:"min=2,max=12"`
	EnforceCapacity  bool          `env:"SESSION_ENFORCE_CAPACITY,default=false"`
	RequireExisting  bool          `env:"SESSION_REQUIRE_EXISTING,default=false"`
	WSWriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	WSPongWait       time.Duration `env:"WS_PONG_WAIT,default=60s" validate:"gt=0"`
	WSReadLimit      int64         `env:"WS_READ_LIMIT,default=65536" validate:"gt=0"`
	AttemptTimeout   time.Duration `env:"SPIRIT_ATTEMPT_TIMEOUT,default=15s" validate:"gt=0"`
	BackoffUnit      time.Duration `env:"SPIRIT_BACKOFF_UNIT,default=1s" validate:"gte=0"`
	MaxAttempts      int           `env:"SPIRIT_MAX_ATTEMPTS,default=3" validate:"min=1,max=10"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`

	ArkAPIKey    string `env:"ARK_API_KEY"`
	ArkAccessKey string `env:"ARK_ACCESS_KEY"`
	ArkSecretKey string `env:"ARK_SECRET_KEY"`
	ArkModel     string `env:"Model"`
	ArkBaseURL   string `env:"ARK_BASE_URL,default=https://ark.cn-beijing.volces.com/api/v3"`
	ArkRegion    string `env:"ARK_REGION,default=cn-beijing"`

	SpeechAppID       string        `env:"SPEECH_APP_ID"`
	SpeechAccessToken string        `env:"SPEECH_ACCESS_TOKEN"`
	SpeechAPIKey      string        `env:"SPEECH_API_KEY"`
	SpeechEndpoint    string        `env:"SPEECH_TTS_ENDPOINT"`
	SpeechVoice       string        `env:"SPEECH_TTS_VOICE,default=en_male_adam_mars_bigtts"`
	SpeechLanguage    string        `env:"SPEECH_TTS_LANGUAGE"`
	SpeechTimeout     time.Duration `env:"SPEECH_TIMEOUT,default=30s" validate:"gt=0"`
	SpeechDialRetries int           `env:"SPEECH_DIAL_RETRIES,default=3" validate:"min=1"`
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var raw environment
	if _, err := env.UnmarshalFromEnviron(&raw); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	server, err := loadServerConfig(raw)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(raw)
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig(raw)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Session: SessionConfig{
			Store:           strings.ToLower(raw.SessionStore),
			BadgerPath:      raw.BadgerPath,
			RedisURL:        raw.RedisURL,
			RedisTTL:        raw.RedisTTL,
			MaxUsers:        raw.MaxSessionUsers,
			EnforceCapacity: raw.EnforceCapacity,
			RequireExisting: raw.RequireExisting,
		},
		Socket: SocketConfig{
			WriteTimeout: raw.WSWriteTimeout,
			PongWait:     raw.WSPongWait,
			ReadLimit:    raw.WSReadLimit,
		},
		Spirit: SpiritConfig{
			AttemptTimeout: raw.AttemptTimeout,
			BackoffUnit:    raw.BackoffUnit,
			MaxAttempts:    raw.MaxAttempts,
		},
		AI:     ai,
		Speech: speech,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr            string
	LogLevel        string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// SessionConfig 描述会话存储与容量策略。
type SessionConfig struct {
	Store           string
	BadgerPath      string
	RedisURL        string
	RedisTTL        time.Duration
	MaxUsers        int
	EnforceCapacity bool
	RequireExisting bool
}

// SocketConfig 描述 WebSocket 连接参数。
type SocketConfig struct {
	WriteTimeout time.Duration
	PongWait     time.Duration
	ReadLimit    int64
}

// SpiritConfig 描述回复编排的重试参数。
type SpiritConfig struct {
	AttemptTimeout time.Duration
	BackoffUnit    time.Duration
	MaxAttempts    int
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(raw environment) (ServerConfig, error) {
	port := strings.TrimSpace(raw.Port)
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	return ServerConfig{
		Addr:            addr,
		LogLevel:        normalizeLevel(raw.LogLevel),
		CORSOrigins:     splitList(raw.CORSOrigins),
		ShutdownTimeout: raw.ShutdownTimeout,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
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

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

func loadAIConfig(raw environment) (AIConfig, error) {
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

	return AIConfig{
		APIKey:      strings.TrimSpace(raw.ArkAPIKey),
		AccessKey:   strings.TrimSpace(raw.ArkAccessKey),
		SecretKey:   strings.TrimSpace(raw.ArkSecretKey),
		Model:       strings.TrimSpace(raw.ArkModel),
		BaseURL:     strings.TrimSpace(raw.ArkBaseURL),
		Region:      strings.TrimSpace(raw.ArkRegion),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig 描述语音合成相关配置
type SpeechConfig struct {
	speechmodel.Config
}

// Enabled 表示是否提供了 AppID 与 AccessToken
func (c SpeechConfig) Enabled() bool { return c.Config.Enabled() }

func loadSpeechConfig(raw environment) (SpeechConfig, error) {
	speed, err := parseOptionalFloat32Env("SPEECH_TTS_SPEED")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsSpeed := float32(1.0) // 默认1.0倍速
	if speed != nil {
		ttsSpeed = *speed
	}

	volume, err := parseOptionalFloat32Env("SPEECH_TTS_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}
	ttsVolume := float32(1.0) // 默认1.0音量
	if volume != nil {
		ttsVolume = *volume
	}

	accessToken := strings.TrimSpace(raw.SpeechAccessToken)
	if accessToken == "" {
		accessToken = strings.TrimSpace(raw.SpeechAPIKey)
	}

	return SpeechConfig{Config: speechmodel.Config{
		AppID:       strings.TrimSpace(raw.SpeechAppID),
		AccessToken: accessToken,
		Voice:       strings.TrimSpace(raw.SpeechVoice),
		Speed:       ttsSpeed,
		Volume:      ttsVolume,
		Language:    strings.TrimSpace(raw.SpeechLanguage),
		Endpoint:    strings.TrimSpace(raw.SpeechEndpoint),
		Timeout:     raw.SpeechTimeout,
		DialRetries: raw.SpeechDialRetries,
	}}, nil
}

// normalizeLevel 统一日志级别写法，兼容 WARNING
func normalizeLevel(level string) string {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "WARNING" {
		return "WARN"
	}
	return level
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
