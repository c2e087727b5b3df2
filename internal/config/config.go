package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Providers understood by LLM_PROVIDER.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	LLMProvider       string
	LLMModel          string
	LLMTimeout        time.Duration
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenAIAPIKey      string
	OpenAIBaseURL     string

	// OutputMode is one of text, json_object, json_schema.
	OutputMode              string
	MaxOutputTokensBasic    int
	MaxOutputTokensDetailed int

	// FailurePolicy is fallback or propagate.
	FailurePolicy     string
	StrictProseLength bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LLM_PROVIDER", ProviderOpenRouter)
	v.SetDefault("LLM_MODEL", "openai/gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_OUTPUT_MODE", "json_schema")
	v.SetDefault("LLM_MAX_OUTPUT_TOKENS_BASIC", 900)
	v.SetDefault("LLM_MAX_OUTPUT_TOKENS_DETAILED", 2400)
	v.SetDefault("READING_FAILURE_POLICY", "fallback")
	v.SetDefault("READING_STRICT_PROSE_LENGTH", false)
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	c := Config{
		HTTPAddr:                v.GetString("HTTP_ADDR"),
		LogLevel:                strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:               strings.ToLower(v.GetString("LOG_FORMAT")),
		LLMProvider:             strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMModel:                v.GetString("LLM_MODEL"),
		OpenRouterAPIKey:        v.GetString("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:       v.GetString("OPENROUTER_BASE_URL"),
		OpenAIAPIKey:            v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:           v.GetString("OPENAI_BASE_URL"),
		OutputMode:              strings.ToLower(v.GetString("LLM_OUTPUT_MODE")),
		MaxOutputTokensBasic:    v.GetInt("LLM_MAX_OUTPUT_TOKENS_BASIC"),
		MaxOutputTokensDetailed: v.GetInt("LLM_MAX_OUTPUT_TOKENS_DETAILED"),
		FailurePolicy:           strings.ToLower(v.GetString("READING_FAILURE_POLICY")),
		StrictProseLength:       v.GetBool("READING_STRICT_PROSE_LENGTH"),
	}

	raw := v.GetString("LLM_TIMEOUT")
	d, err := time.ParseDuration(raw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid LLM_TIMEOUT %q: %w", raw, err)
	}
	c.LLMTimeout = d

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	switch c.OutputMode {
	case "text", "json_object", "json_schema":
	default:
		return fmt.Errorf("invalid LLM_OUTPUT_MODE %q", c.OutputMode)
	}
	switch c.FailurePolicy {
	case "fallback", "propagate":
	default:
		return fmt.Errorf("invalid READING_FAILURE_POLICY %q", c.FailurePolicy)
	}
	if c.MaxOutputTokensBasic <= 0 || c.MaxOutputTokensDetailed <= 0 {
		return errors.New("LLM_MAX_OUTPUT_TOKENS_BASIC and LLM_MAX_OUTPUT_TOKENS_DETAILED must be positive")
	}
	if c.LLMTimeout <= 0 {
		return errors.New("LLM_TIMEOUT must be positive")
	}

	switch c.LLMProvider {
	case ProviderOpenRouter:
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenRouter)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=%s", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// loadDotEnv loads ENV_FILE (default .env) when it exists. Variables already set
// in the environment win.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
