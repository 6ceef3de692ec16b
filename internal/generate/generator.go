// Package generate composes a grounded prompt from retrieved chunks and produces
// an answer with a chat model.
package generate

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/hyperjump/kotae/internal/models"
)

// UncertainAnswer is returned by the extractive generator when there is no context.
const UncertainAnswer = "I don't know."

// Generator answers a question from context chunks given in relevance order.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []*models.Chunk) (*models.Answer, error)
}

// Policy controls prompt composition.
type Policy struct {
	// SystemPrompt may contain {context} and {max_sentences} placeholders.
	SystemPrompt string
	MaxSentences int
	// ContextBudget caps the context in characters; zero or less means unlimited.
	ContextBudget int
}

// PolicyStore holds the active Policy and allows swapping it while generators run.
type PolicyStore struct {
	v atomic.Pointer[Policy]
}

// NewPolicyStore returns a store holding p.
func NewPolicyStore(p Policy) *PolicyStore {
	s := &PolicyStore{}
	s.Set(p)
	return s
}

// Load returns the current policy.
func (s *PolicyStore) Load() Policy {
	return *s.v.Load()
}

// Set replaces the current policy.
func (s *PolicyStore) Set(p Policy) {
	s.v.Store(&p)
}

// SetSystemPrompt replaces only the system prompt.
func (s *PolicyStore) SetSystemPrompt(prompt string) {
	p := s.Load()
	p.SystemPrompt = prompt
	s.Set(p)
}

const contextSeparator = "\n\n"

// BuildContext joins chunk contents in order, separated by blank lines, within
// budget characters. Trailing (least relevant) chunks are dropped first; a first
// chunk that alone exceeds the budget is truncated. It returns the context text
// and the chunks that contributed to it.
func BuildContext(chunks []*models.Chunk, budget int) (string, []*models.Chunk) {
	var b strings.Builder
	used := make([]*models.Chunk, 0, len(chunks))
	size := 0
	for _, ch := range chunks {
		n := len([]rune(ch.Content))
		sep := 0
		if len(used) > 0 {
			sep = len(contextSeparator)
		}
		if budget > 0 && size+sep+n > budget {
			if len(used) == 0 {
				b.WriteString(string([]rune(ch.Content)[:budget]))
				used = append(used, ch)
			}
			break
		}
		if sep > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(ch.Content)
		size += sep + n
		used = append(used, ch)
	}
	return b.String(), used
}

// RenderSystemPrompt substitutes {context} and {max_sentences} in the policy's prompt.
// The sentence limit is spelled out for small numbers ("three").
func RenderSystemPrompt(p Policy, context string) string {
	return strings.NewReplacer(
		"{max_sentences}", sentenceCount(p.MaxSentences),
		"{context}", context,
	).Replace(p.SystemPrompt)
}

var smallNumbers = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

func sentenceCount(n int) string {
	if n >= 0 && n < len(smallNumbers) {
		return smallNumbers[n]
	}
	return strconv.Itoa(n)
}
