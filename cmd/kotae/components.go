package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/fetch"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Policy   *generate.PolicyStore
	Sessions *session.Manager
	Pipeline *session.Pipeline
}

// Close releases storage and the embedding provider.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	debugLogger := zap.NewNop()
	if debug {
		debugLogger = logger
	}

	chunker, err := indexer.NewChunker(cfg.Chunking.MaxLength, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	policy := generate.PolicyFromConfig(cfg.Generation)
	if cfg.Generation.SystemPromptFile != "" {
		prompt, err := generate.LoadPromptFile(cfg.Generation.SystemPromptFile)
		if err != nil {
			return nil, err
		}
		policy.SystemPrompt = prompt
	}
	policyStore := generate.NewPolicyStore(policy)

	embedder, err := embedding.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	generator, err := generate.NewGenerator(cfg.Generation, policyStore, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}

	c := &Components{Embedder: embedder, Policy: policyStore}
	pipeOpts := []session.PipelineOption{
		session.WithFetchTimeout(config.Seconds(cfg.Fetch.TimeoutSeconds)),
		session.WithLogger(logger),
	}
	if !cfg.Storage.Disabled && cfg.Storage.DatabasePath != "" {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Storage = store
		pipeOpts = append(pipeOpts, session.WithRecorder(store))
	}

	fetcher := fetch.NewFetcher(config.Seconds(cfg.Fetch.TimeoutSeconds),
		fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithLogger(debugLogger))
	embedTimeout := config.Seconds(cfg.Embedding.TimeoutSeconds)
	idx := indexer.NewIndexer(chunker, embedder,
		indexer.WithEmbedTimeout(embedTimeout),
		indexer.WithLogger(debugLogger))
	retriever := search.NewRetriever(embedder, cfg.Retrieval.TopK,
		search.WithEmbedTimeout(embedTimeout),
		search.WithLogger(debugLogger))

	c.Sessions = session.NewManager(logger)
	c.Pipeline = session.NewPipeline(fetcher, idx, retriever, generator, pipeOpts...)
	return c, nil
}

// startPromptWatcher reloads the system prompt into policy whenever path changes.
func startPromptWatcher(ctx context.Context, path string, policy *generate.PolicyStore, logger *zap.Logger) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher([]string{path}, func(p string) {
		prompt, err := generate.LoadPromptFile(p)
		if err != nil {
			logger.Warn("system prompt reload failed, keeping the previous prompt", zap.String("path", p), zap.Error(err))
			return
		}
		policy.SetSystemPrompt(prompt)
		logger.Info("system prompt reloaded", zap.String("path", p))
	}, watcher.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to watch system prompt: %w", err)
	}
	return w, nil
}

// startEvictor schedules idle session eviction. A negative max idle disables it.
func startEvictor(cfg config.SessionsConfig, sessions *session.Manager) (*cron.Cron, error) {
	if cfg.MaxIdleMinutes < 0 {
		return nil, nil
	}
	maxIdle := time.Duration(cfg.MaxIdleMinutes) * time.Minute
	c := cron.New()
	if _, err := c.AddFunc(cfg.EvictSchedule, func() { sessions.EvictIdle(maxIdle) }); err != nil {
		return nil, fmt.Errorf("invalid sessions.evict_schedule %q: %w", cfg.EvictSchedule, err)
	}
	c.Start()
	return c, nil
}
