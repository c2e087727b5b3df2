// Package llm selects the generation backend named by the configuration.
package llm

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/adapters/llm/openrouter"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/adapters/llm/responses"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/config"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

// NewGenerator returns the ports.Generator for cfg.LLMProvider.
func NewGenerator(cfg config.Config, logger *zap.Logger) (ports.Generator, error) {
	httpClient := &http.Client{Timeout: cfg.LLMTimeout}
	log := logger.With(zap.String("provider", cfg.LLMProvider), zap.String("model", cfg.LLMModel))

	switch cfg.LLMProvider {
	case config.ProviderOpenRouter:
		return openrouter.NewClient(httpClient, cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.LLMModel, log), nil
	case config.ProviderOpenAI:
		return responses.NewClient(httpClient, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel, log), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
