package generate

import (
	"context"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/ragerr"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatModel sends a conversation to a model and returns the reply text.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Name() string
}

// ChatGenerator answers with a ChatModel: the rendered system prompt carries
// the context, and the question is the user turn.
type ChatGenerator struct {
	model   ChatModel
	policy  *PolicyStore
	timeout time.Duration
	logger  *zap.Logger
}

// ChatOption configures a ChatGenerator.
type ChatOption func(*ChatGenerator)

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) ChatOption {
	return func(g *ChatGenerator) { g.timeout = d }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ChatOption {
	return func(g *ChatGenerator) { g.logger = l }
}

// NewChatGenerator creates a generator backed by model.
func NewChatGenerator(model ChatModel, policy *PolicyStore, opts ...ChatOption) *ChatGenerator {
	g := &ChatGenerator{model: model, policy: policy}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.OrNop(g.logger)
	return g
}

// Generate builds the prompt and calls the model. Provider failures are
// ragerr.KindGeneration; a missed deadline is ragerr.KindTimeout.
func (g *ChatGenerator) Generate(ctx context.Context, question string, chunks []*models.Chunk) (*models.Answer, error) {
	p := g.policy.Load()
	contextText, used := BuildContext(chunks, p.ContextBudget)
	messages := []Message{
		{Role: RoleSystem, Content: RenderSystemPrompt(p, contextText)},
		{Role: RoleUser, Content: question},
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := g.model.Chat(ctx, messages)
	if err != nil {
		return nil, ragerr.Wrap(ragerr.KindGeneration, "generate", err)
	}
	g.logger.Debug("answer generated",
		zap.String("model", g.model.Name()),
		zap.Int("context_chunks", len(used)),
		zap.Int("context_chars", len([]rune(contextText))),
		zap.Duration("elapsed", time.Since(start)))
	return &models.Answer{Text: strings.TrimSpace(text), Context: used}, nil
}
