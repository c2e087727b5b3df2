package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

// Client implements ports.Generator over an OpenAI-compatible chat completions
// API (OpenRouter by default).
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Generate makes one chat completion call. It never retries.
func (c *Client) Generate(ctx context.Context, in ports.GenerateInput) (ports.Reply, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: in.Prompt},
		},
		MaxTokens: in.MaxOutputTokens,
	}

	format, err := responseFormat(in)
	if err != nil {
		return ports.Reply{}, fmt.Errorf("%w: %w", domain.ErrGenerationServiceFailed, err)
	}
	req.ResponseFormat = format

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("chat completion rejected",
				zap.String("model", c.model),
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.String("type", apiErr.Type),
			)
		}
		return ports.Reply{}, fmt.Errorf("%w: %w", domain.ErrGenerationServiceFailed, err)
	}
	if len(resp.Choices) == 0 {
		return ports.Reply{}, fmt.Errorf("%w: no choices in response", domain.ErrGenerationServiceFailed)
	}

	msg := resp.Choices[0].Message
	reply := ports.Reply{
		Model:      resp.Model,
		OutputText: msg.Content,
	}
	if reply.Model == "" {
		reply.Model = c.model
	}
	for _, part := range msg.MultiContent {
		reply.Blocks = append(reply.Blocks, ports.ContentBlock{
			Kind: string(part.Type),
			Text: part.Text,
		})
	}
	if msg.Refusal != "" {
		reply.Blocks = append(reply.Blocks, ports.ContentBlock{Kind: ports.BlockRefusal, Text: msg.Refusal})
		c.logger.Warn("model refused", zap.String("model", reply.Model))
	}

	c.logger.Debug("chat completion received",
		zap.String("model", reply.Model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return reply, nil
}

func responseFormat(in ports.GenerateInput) (*openai.ChatCompletionResponseFormat, error) {
	switch in.Strategy {
	case ports.StrategyText, "":
		return nil, nil
	case ports.StrategyJSONObject:
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}, nil
	case ports.StrategyJSONSchema:
		raw, err := json.Marshal(in.Schema)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   in.SchemaName,
				Schema: json.RawMessage(raw),
				Strict: true,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown output strategy %q", in.Strategy)
	}
}
