package generate

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/kotae/internal/models"
)

// MockGenerator answers extractively: the first MaxSentences sentences of the
// most relevant chunk, or UncertainAnswer without context. It needs no network.
type MockGenerator struct {
	policy *PolicyStore
}

// NewMockGenerator creates an extractive generator.
func NewMockGenerator(policy *PolicyStore) *MockGenerator {
	return &MockGenerator{policy: policy}
}

// Generate returns an extractive answer.
func (g *MockGenerator) Generate(ctx context.Context, question string, chunks []*models.Chunk) (*models.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := g.policy.Load()
	contextText, used := BuildContext(chunks, p.ContextBudget)
	if len(used) == 0 || strings.TrimSpace(contextText) == "" {
		return &models.Answer{Text: UncertainAnswer}, nil
	}
	first := contextText
	if i := strings.Index(first, contextSeparator); i >= 0 {
		first = first[:i]
	}
	max := p.MaxSentences
	if max <= 0 {
		max = 3
	}
	sentences := SplitSentences(first)
	if len(sentences) > max {
		sentences = sentences[:max]
	}
	return &models.Answer{Text: strings.Join(sentences, " "), Context: used}, nil
}

// SplitSentences splits text after '.', '!' or '?' followed by whitespace.
// Whitespace inside sentences is collapsed.
func SplitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		end := r == '.' || r == '!' || r == '?'
		if end && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
		out = append(out, s)
	}
	return out
}
