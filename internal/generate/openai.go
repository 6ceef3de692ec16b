package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/llmhttp"
	"go.uber.org/zap"
)

// OpenAIChat calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIChat struct {
	client      *llmhttp.Client
	model       string
	temperature float64
	maxTokens   int
}

// OpenAIConfig configures OpenAIChat.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// NewOpenAIChat creates an OpenAI chat model client.
func NewOpenAIChat(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIChat, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai chat: model is required")
	}
	opts := []llmhttp.Option{llmhttp.WithMaxRetries(cfg.MaxRetries), llmhttp.WithLogger(logger)}
	if cfg.APIKey != "" {
		opts = append(opts, llmhttp.WithAPIKey(cfg.APIKey))
	}
	return &OpenAIChat{
		client:      llmhttp.New(cfg.BaseURL, cfg.Timeout, opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name returns the model name.
func (c *OpenAIChat) Name() string { return "openai:" + c.model }

// Chat sends messages and returns the first choice's content.
func (c *OpenAIChat) Chat(ctx context.Context, messages []Message) (string, error) {
	req := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	var resp chatCompletionResponse
	if err := c.client.PostJSON(ctx, "chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
