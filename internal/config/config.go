// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeoutSeconds bounds a whole HTTP request.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	// ExposeErrors returns raw pipeline error text to callers (development posture).
	ExposeErrors bool `yaml:"expose_errors"`
	// IngestRatePerSecond and IngestBurst configure the ingestion token bucket.
	// A negative rate disables limiting.
	IngestRatePerSecond float64 `yaml:"ingest_rate_per_second"`
	IngestBurst         int     `yaml:"ingest_burst"`
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`
}

// FetchConfig holds document fetcher settings.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes"`
	UserAgent      string `yaml:"user_agent"`
}

// ChunkingConfig holds chunker settings, in characters. An overlap left out of
// the file defaults to a fifth of max_length; an explicit 0 disables overlap.
type ChunkingConfig struct {
	MaxLength int `yaml:"max_length"`
	Overlap   int `yaml:"overlap"`

	overlapSet bool
}

// UnmarshalYAML records whether overlap was present so an explicit 0 survives defaults.
func (c *ChunkingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxLength int  `yaml:"max_length"`
		Overlap   *int `yaml:"overlap"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.MaxLength = raw.MaxLength
	c.Overlap = 0
	c.overlapSet = raw.Overlap != nil
	if raw.Overlap != nil {
		c.Overlap = *raw.Overlap
	}
	return nil
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "mock", "openai", "onnx".
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimensions     int    `yaml:"dimensions"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	CacheSize      int    `yaml:"cache_size"`
	// ModelPath and MaxTokens apply to the onnx provider.
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
}

// GenerationConfig selects the answer generator and its prompt policy.
type GenerationConfig struct {
	// Provider is one of "mock", "openai", "ollama".
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	BaseURL          string  `yaml:"base_url"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	SystemPrompt     string  `yaml:"system_prompt"`
	SystemPromptFile string  `yaml:"system_prompt_file"`
	MaxSentences     int     `yaml:"max_sentences"`
	// ContextBudget is the maximum number of context characters sent to the generator.
	ContextBudget int `yaml:"context_budget"`
}

// RetrievalConfig holds retriever settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// SessionsConfig holds session lifecycle settings.
type SessionsConfig struct {
	MaxIdleMinutes int `yaml:"max_idle_minutes"`
	// EvictSchedule is a cron spec for the idle eviction job (e.g. "@every 5m").
	EvictSchedule string `yaml:"evict_schedule"`
}

// StorageConfig holds the ingestion history database settings.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	Disabled     bool   `yaml:"disabled"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Generation.SystemPromptFile = expandPath(cfg.Generation.SystemPromptFile, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be positive, got %d", c.Server.RequestTimeoutSeconds)
	}
	if c.Chunking.MaxLength <= 0 {
		return fmt.Errorf("chunking.max_length must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxLength {
		return fmt.Errorf("chunking.overlap must be in [0, max_length), got %d", c.Chunking.Overlap)
	}
	switch c.Embedding.Provider {
	case "mock", "openai", "onnx":
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, onnx)", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "mock", "openai", "ollama":
	default:
		return fmt.Errorf("unknown generation provider: %s (supported: mock, openai, ollama)", c.Generation.Provider)
	}
	return nil
}

// Seconds converts a *_seconds config value to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
