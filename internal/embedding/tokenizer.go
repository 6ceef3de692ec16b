package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs.
// It is not a WordPiece tokenizer; pair it with models trained on the same hashing.
type SimpleTokenizer struct{}

const (
	clsToken  = 101
	sepToken  = 102
	vocabSize = 30000
)

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsToken
	attentionMask[0] = 1

	pos := 1
	for _, word := range Words(text) {
		if pos >= maxTokens-1 {
			break
		}
		// Keep IDs clear of the special tokens.
		inputIDs[pos] = int64(HashString(word)%(vocabSize-1000)) + 1000
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepToken
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// Words lower-cases text and splits it into runs of letters and digits.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// HashString returns a deterministic non-negative 32-bit FNV-1a hash of s.
func HashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Batch is a tokenized batch laid out row-major as [rows, width] tensors.
type Batch struct {
	Rows          int
	Width         int
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// PackBatch tokenizes texts into one padded batch of width maxTokens.
func PackBatch(t Tokenizer, texts []string, maxTokens int) *Batch {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	n := len(texts)
	b := &Batch{
		Rows:          n,
		Width:         maxTokens,
		InputIDs:      make([]int64, 0, n*maxTokens),
		AttentionMask: make([]int64, 0, n*maxTokens),
		TokenTypeIDs:  make([]int64, 0, n*maxTokens),
	}
	for _, text := range texts {
		ids, mask, types := t.Tokenize(text, maxTokens)
		b.InputIDs = append(b.InputIDs, ids...)
		b.AttentionMask = append(b.AttentionMask, mask...)
		b.TokenTypeIDs = append(b.TokenTypeIDs, types...)
	}
	return b
}
