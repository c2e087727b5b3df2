package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

// Client implements ports.Generator via the OpenAI Responses API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		logger:     logger,
	}
}

type request struct {
	Model           string      `json:"model"`
	Input           string      `json:"input"`
	MaxOutputTokens int         `json:"max_output_tokens,omitempty"`
	Text            *textConfig `json:"text,omitempty"`
}

type textConfig struct {
	Format map[string]any `json:"format"`
}

type contentPart struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Refusal string          `json:"refusal,omitempty"`
	Parsed  json.RawMessage `json:"parsed,omitempty"`
	JSON    json.RawMessage `json:"json,omitempty"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []contentPart `json:"content,omitempty"`
}

type response struct {
	Model      string       `json:"model"`
	Status     string       `json:"status"`
	OutputText string       `json:"output_text"`
	Output     []outputItem `json:"output"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate makes one POST /responses call. It never retries.
func (c *Client) Generate(ctx context.Context, in ports.GenerateInput) (ports.Reply, error) {
	reqBody := request{
		Model:           c.model,
		Input:           in.Prompt,
		MaxOutputTokens: in.MaxOutputTokens,
	}
	switch in.Strategy {
	case ports.StrategyText, "":
	case ports.StrategyJSONObject:
		reqBody.Text = &textConfig{Format: map[string]any{"type": "json_object"}}
	case ports.StrategyJSONSchema:
		reqBody.Text = &textConfig{Format: map[string]any{
			"type":   "json_schema",
			"name":   in.SchemaName,
			"schema": in.Schema,
			"strict": true,
		}}
	default:
		return ports.Reply{}, fmt.Errorf("%w: unknown output strategy %q", domain.ErrGenerationServiceFailed, in.Strategy)
	}

	resp, err := c.call(ctx, reqBody)
	if err != nil {
		return ports.Reply{}, fmt.Errorf("%w: %w", domain.ErrGenerationServiceFailed, err)
	}

	reply := ports.Reply{Model: resp.Model, OutputText: resp.OutputText}
	if reply.Model == "" {
		reply.Model = c.model
	}
	for _, item := range resp.Output {
		if item.Type != "message" {
			reply.Blocks = append(reply.Blocks, ports.ContentBlock{Kind: item.Type})
			continue
		}
		for _, part := range item.Content {
			reply.Blocks = append(reply.Blocks, toBlock(part))
		}
	}

	if resp.Status == "incomplete" {
		c.logger.Warn("response incomplete", zap.String("model", reply.Model))
	}
	return reply, nil
}

func toBlock(p contentPart) ports.ContentBlock {
	b := ports.ContentBlock{Kind: p.Type, Text: p.Text}
	if p.Type == ports.BlockRefusal {
		b.Text = p.Refusal
		return b
	}
	for _, raw := range []json.RawMessage{p.Parsed, p.JSON} {
		if len(raw) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
			b.Object = obj
			break
		}
	}
	return b
}

func (c *Client) call(ctx context.Context, reqBody request) (response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return response{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("http call: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return response{}, fmt.Errorf("upstream status %d: %s", httpResp.StatusCode, domain.Preview(string(respBody)))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Status == "failed" || out.Error != nil {
		msg := "unknown error"
		if out.Error != nil {
			msg = out.Error.Code + ": " + out.Error.Message
		}
		return response{}, fmt.Errorf("response failed: %s", msg)
	}
	return out, nil
}
