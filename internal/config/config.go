package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// DefaultModels are used when MODEL_NAME is not set.
var DefaultModels = map[string]string{
	ProviderDeepSeek:  "deepseek-chat",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOllama:    "llama3.1",
}

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevelRaw string `envconfig:"LOG_LEVEL" default:"info"`

	LogLevel slog.Level `ignored:"true"`

	RedisURL string        `envconfig:"REDIS_URL" default:"localhost:6379"`
	GameTTL  time.Duration `envconfig:"GAME_TTL" default:"1h"`

	LLMProvider     string        `envconfig:"LLM_PROVIDER" default:"deepseek"`
	ModelName       string        `envconfig:"MODEL_NAME"`
	LLMBaseURL      string        `envconfig:"LLM_BASE_URL" default:"https://api.deepseek.com"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`
	DeepSeekAPIKey  string        `envconfig:"DEEPSEEK_API_KEY"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	OllamaHost      string        `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`

	ReplicateAPIToken string        `envconfig:"REPLICATE_API_TOKEN"`
	ReplicateModelURL string        `envconfig:"REPLICATE_MODEL_URL" default:"https://api.replicate.com/v1/models/black-forest-labs/flux-schnell/predictions"`
	ImageTimeout      time.Duration `envconfig:"IMAGE_TIMEOUT" default:"60s"`
	ImagePollAttempts int           `envconfig:"IMAGE_POLL_ATTEMPTS" default:"15"`
	ImagePollInterval time.Duration `envconfig:"IMAGE_POLL_INTERVAL" default:"2s"`

	// PromptsFile replaces the embedded prompt catalog when set.
	PromptsFile string `envconfig:"PROMPTS_FILE"`

	// ContentRating enables the profanity filter for G, PG and PG-13.
	ContentRating string `envconfig:"CONTENT_RATING"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModels[cfg.LLMProvider]
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected provider can actually be used.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderDeepSeek:
		if c.DeepSeekAPIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required when LLM_PROVIDER is %q", c.LLMProvider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER is %q", c.LLMProvider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is %q", c.LLMProvider)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST is required when LLM_PROVIDER is %q", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (supported: deepseek, anthropic, gemini, ollama)", c.LLMProvider)
	}
	if c.GameTTL <= 0 {
		return fmt.Errorf("GAME_TTL must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	return nil
}

// ImagesEnabled reports whether a Replicate token was configured.
func (c *Config) ImagesEnabled() bool {
	return c.ReplicateAPIToken != ""
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
