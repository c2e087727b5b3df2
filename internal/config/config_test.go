package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/config"
)

// isolate points ENV_FILE at a missing file and clears keys a developer shell may set.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "LLM_PROVIDER", "LLM_MODEL", "LLM_TIMEOUT",
		"OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"LLM_OUTPUT_MODE", "LLM_MAX_OUTPUT_TOKENS_BASIC", "LLM_MAX_OUTPUT_TOKENS_DETAILED",
		"READING_FAILURE_POLICY", "READING_STRICT_PROSE_LENGTH",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, config.ProviderOpenRouter, cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "json_schema", cfg.OutputMode)
	assert.Equal(t, 900, cfg.MaxOutputTokensBasic)
	assert.Equal(t, 2400, cfg.MaxOutputTokensDetailed)
	assert.Equal(t, "fallback", cfg.FailurePolicy)
	assert.False(t, cfg.StrictProseLength)
}

func TestLoad_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("LLM_OUTPUT_MODE", "text")
	t.Setenv("READING_FAILURE_POLICY", "propagate")
	t.Setenv("READING_STRICT_PROSE_LENGTH", "true")
	t.Setenv("LLM_MAX_OUTPUT_TOKENS_DETAILED", "3000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "text", cfg.OutputMode)
	assert.Equal(t, "propagate", cfg.FailurePolicy)
	assert.True(t, cfg.StrictProseLength)
	assert.Equal(t, 3000, cfg.MaxOutputTokensDetailed)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENROUTER_API_KEY=from-file\nLLM_MODEL=file-model\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("LLM_MODEL", "env-model")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.OpenRouterAPIKey)
	assert.Equal(t, "env-model", cfg.LLMModel, "environment wins over the file")

	// godotenv sets variables in the process; drop the one it added.
	require.NoError(t, os.Unsetenv("OPENROUTER_API_KEY"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing openrouter key", map[string]string{}},
		{"missing openai key", map[string]string{"LLM_PROVIDER": "openai", "OPENROUTER_API_KEY": "k"}},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "local", "OPENROUTER_API_KEY": "k"}},
		{"bad timeout", map[string]string{"LLM_TIMEOUT": "soon", "OPENROUTER_API_KEY": "k"}},
		{"bad output mode", map[string]string{"LLM_OUTPUT_MODE": "yaml", "OPENROUTER_API_KEY": "k"}},
		{"bad policy", map[string]string{"READING_FAILURE_POLICY": "retry", "OPENROUTER_API_KEY": "k"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "trace", "OPENROUTER_API_KEY": "k"}},
		{"zero tokens", map[string]string{"LLM_MAX_OUTPUT_TOKENS_BASIC": "0", "OPENROUTER_API_KEY": "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
