package config

// DefaultSystemPrompt is the instruction given to the answer generator.
// {context} and {max_sentences} are substituted at request time.
const DefaultSystemPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer " +
	"the question. If you don't know the answer, say that you " +
	"don't know. Use {max_sentences} sentences maximum and keep the " +
	"answer concise." +
	"\n\n" +
	"{context}"

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 120
	}
	if cfg.Server.IngestRatePerSecond == 0 {
		cfg.Server.IngestRatePerSecond = 1
	}
	if cfg.Server.IngestBurst == 0 {
		cfg.Server.IngestBurst = 5
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = 30
	}
	if cfg.Fetch.MaxBytes == 0 {
		cfg.Fetch.MaxBytes = 5 << 20
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "kotae/1.0 (+https://github.com/hyperjump/kotae)"
	}
	if cfg.Chunking.MaxLength == 0 {
		cfg.Chunking.MaxLength = 1000
	}
	if cfg.Chunking.Overlap == 0 && !cfg.Chunking.overlapSet {
		cfg.Chunking.Overlap = cfg.Chunking.MaxLength / 5
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "mock"
	}
	if cfg.Generation.Model == "" {
		if cfg.Generation.Provider == "ollama" {
			cfg.Generation.Model = "llama3"
		} else {
			cfg.Generation.Model = "gpt-4o-mini"
		}
	}
	if cfg.Generation.BaseURL == "" {
		if cfg.Generation.Provider == "ollama" {
			cfg.Generation.BaseURL = "http://localhost:11434/api"
		} else {
			cfg.Generation.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 60
	}
	if cfg.Generation.SystemPrompt == "" {
		cfg.Generation.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Generation.MaxSentences == 0 {
		cfg.Generation.MaxSentences = 3
	}
	if cfg.Generation.ContextBudget == 0 {
		cfg.Generation.ContextBudget = 8000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Sessions.MaxIdleMinutes == 0 {
		cfg.Sessions.MaxIdleMinutes = 60
	}
	if cfg.Sessions.EvictSchedule == "" {
		cfg.Sessions.EvictSchedule = "@every 5m"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/kotae.db"
	}
}
