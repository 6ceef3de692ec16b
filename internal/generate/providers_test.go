package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/ragerr"
)

func testPolicy() *PolicyStore {
	return NewPolicyStore(Policy{SystemPrompt: config.DefaultSystemPrompt, MaxSentences: 2, ContextBudget: 1000})
}

func TestMockGenerator(t *testing.T) {
	g := NewMockGenerator(testPolicy())
	ans, err := g.Generate(context.Background(), "q", chunks("First. Second. Third.", "Other chunk."))
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "First. Second." {
		t.Errorf("Text = %q", ans.Text)
	}
	if len(ans.Context) != 2 {
		t.Errorf("Context = %d chunks", len(ans.Context))
	}

	ans, err = g.Generate(context.Background(), "q", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != UncertainAnswer || len(ans.Context) != 0 {
		t.Errorf("no context: %+v", ans)
	}
}

func TestChatGenerator_openAI(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Paris.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m, err := NewOpenAIChat(OpenAIConfig{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "gpt-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	g := NewChatGenerator(m, testPolicy(), WithTimeout(time.Second))
	ans, err := g.Generate(context.Background(), "What is the capital?", chunks("Paris is the capital of France."))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ans.Text != "Paris." {
		t.Errorf("Text = %q", ans.Text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem || got.Messages[1].Content != "What is the capital?" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "Paris is the capital of France.") {
		t.Errorf("system prompt should carry the context: %q", got.Messages[0].Content)
	}
	if got.Model != "gpt-test" {
		t.Errorf("model = %q", got.Model)
	}
}

func TestChatGenerator_ollama(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Blue."},"done":true}`))
	}))
	defer srv.Close()

	m, err := NewOllamaChat(srv.URL+"/api", "llama3", 0.1, 0, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	ans, err := NewChatGenerator(m, testPolicy()).Generate(context.Background(), "Sky colour?", chunks("The sky is blue."))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ans.Text != "Blue." {
		t.Errorf("Text = %q", ans.Text)
	}
	if got.Stream {
		t.Error("requests must not stream")
	}
}

func TestChatGenerator_providerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	m, _ := NewOpenAIChat(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, nil)
	_, err := NewChatGenerator(m, testPolicy()).Generate(context.Background(), "q", chunks("c"))
	if !errors.Is(err, ragerr.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestChatGenerator_timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m, _ := NewOllamaChat(srv.URL, "m", 0, 0, 0, nil)
	_, err := NewChatGenerator(m, testPolicy(), WithTimeout(30*time.Millisecond)).Generate(context.Background(), "q", chunks("c"))
	if !errors.Is(err, ragerr.ErrTimeout) {
		t.Fatalf("expected timeout, got %v (kind %q)", err, ragerr.KindOf(err))
	}
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(config.GenerationConfig{Provider: "mock"}, testPolicy(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.(*MockGenerator); !ok {
		t.Errorf("got %T", g)
	}
	t.Setenv("KOTAE_TEST_NO_KEY", "")
	if _, err := NewGenerator(config.GenerationConfig{Provider: "openai", APIKeyEnv: "KOTAE_TEST_NO_KEY", Model: "m"}, testPolicy(), nil); err == nil {
		t.Error("expected missing key error")
	}
	if _, err := NewGenerator(config.GenerationConfig{Provider: "gpt2"}, testPolicy(), nil); err == nil {
		t.Error("expected unknown provider error")
	}
}

func TestLoadPromptFile(t *testing.T) {
	dir := t.TempDir()
	withCtx := filepath.Join(dir, "a.txt")
	noCtx := filepath.Join(dir, "b.txt")
	empty := filepath.Join(dir, "c.txt")
	_ = os.WriteFile(withCtx, []byte("  Answer briefly.\n{context}\n"), 0600)
	_ = os.WriteFile(noCtx, []byte("Answer like a pirate."), 0600)
	_ = os.WriteFile(empty, []byte(" \n"), 0600)

	got, err := LoadPromptFile(withCtx)
	if err != nil || got != "Answer briefly.\n{context}" {
		t.Errorf("LoadPromptFile = %q, %v", got, err)
	}
	got, err = LoadPromptFile(noCtx)
	if err != nil || got != "Answer like a pirate.\n\n{context}" {
		t.Errorf("missing placeholder should be appended, got %q, %v", got, err)
	}
	if _, err := LoadPromptFile(empty); err == nil {
		t.Error("expected error for empty prompt file")
	}
	if _, err := LoadPromptFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
