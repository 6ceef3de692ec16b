package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/llmhttp"
	"go.uber.org/zap"
)

// DefaultOllamaURL is the local Ollama API root.
const DefaultOllamaURL = "http://localhost:11434/api"

// OllamaChat calls Ollama's /api/chat without streaming.
type OllamaChat struct {
	client      *llmhttp.Client
	model       string
	temperature float64
	maxTokens   int
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// NewOllamaChat creates an Ollama chat client. baseURL defaults to DefaultOllamaURL.
func NewOllamaChat(baseURL, model string, temperature float64, maxTokens int, timeout time.Duration, logger *zap.Logger) (*OllamaChat, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama chat: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaChat{
		client:      llmhttp.New(baseURL, timeout, llmhttp.WithLogger(logger)),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Name returns the model name.
func (c *OllamaChat) Name() string { return "ollama:" + c.model }

// Chat sends messages and returns the assistant reply.
func (c *OllamaChat) Chat(ctx context.Context, messages []Message) (string, error) {
	req := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: c.temperature, NumPredict: c.maxTokens},
	}
	var resp ollamaChatResponse
	if err := c.client.PostJSON(ctx, "chat", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	return resp.Message.Content, nil
}
