package generate

import (
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// PolicyFromConfig returns the prompt policy configured in cfg.
func PolicyFromConfig(cfg config.GenerationConfig) Policy {
	return Policy{
		SystemPrompt:  cfg.SystemPrompt,
		MaxSentences:  cfg.MaxSentences,
		ContextBudget: cfg.ContextBudget,
	}
}

// LoadPromptFile reads a system prompt template from path. A template without a
// {context} placeholder gets the context appended after a blank line.
func LoadPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file %s is empty", path)
	}
	if !strings.Contains(prompt, "{context}") {
		prompt += "\n\n{context}"
	}
	return prompt, nil
}

// NewGenerator builds the generator selected by cfg.Provider.
func NewGenerator(cfg config.GenerationConfig, policy *PolicyStore, logger *zap.Logger) (Generator, error) {
	logger = utils.OrNop(logger)
	timeout := config.Seconds(cfg.TimeoutSeconds)
	var model ChatModel
	switch cfg.Provider {
	case "", "mock":
		return NewMockGenerator(policy), nil
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key: set %s", cfg.APIKeyEnv)
		}
		m, err := NewOpenAIChat(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      key,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			MaxRetries:  2,
		}, logger)
		if err != nil {
			return nil, err
		}
		model = m
	case "ollama":
		m, err := NewOllamaChat(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens, 0, logger)
		if err != nil {
			return nil, err
		}
		model = m
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
	logger.Info("generation provider ready", zap.String("model", model.Name()))
	return NewChatGenerator(model, policy, WithTimeout(timeout), WithLogger(logger)), nil
}
