// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8000"
	excerptLength     = 200
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence, and a missing default file falls back
// to built-in defaults. Returns the config and the path actually loaded ("" for
// built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Secrets such as OPENAI_API_KEY may live in .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (pipeline stages, prompt reloads, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if path := cfg.Generation.SystemPromptFile; path != "" {
		w, err := startPromptWatcher(ctx, path, components.Policy, logger)
		if err != nil {
			logger.Fatal("Failed to start prompt watcher", zap.Error(err))
		}
		defer w.Stop()
	}
	evictor, err := startEvictor(cfg.Sessions, components.Sessions)
	if err != nil {
		logger.Fatal("Failed to schedule session eviction", zap.Error(err))
	}

	srv := server.NewServer(components.Sessions, components.Pipeline, cfg,
		server.WithStorage(components.Storage),
		server.WithLogger(logger),
		server.WithVersion(version),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if evictor != nil {
		<-evictor.Stop().Done()
	}
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	sessionID := fs.String("session", "", "session id (default: the default session)")
	newSession := fs.Bool("new-session", false, "create a new session and ingest into it")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(cli.ReorderArgs(os.Args[2:]))

	locator := cli.JoinArgs(fs.Args())
	if locator == "" {
		fmt.Println("Usage: kotae ingest [flags] <url>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	client := cli.NewClient(*serverURL, 5*time.Minute)
	id := *sessionID
	if *newSession {
		if id, err = client.CreateSession(ctx); err != nil {
			fmt.Printf("Failed to create session: %v\n", err)
			os.Exit(1)
		}
	}
	resp, err := client.Ingest(ctx, id, locator)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	if resp.SessionID == "" {
		resp.SessionID = id
	}
	_ = cli.WriteIngest(os.Stdout, resp, format)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", "", "server URL (empty = run the pipeline in-process)")
	locator := fs.String("url", "", "URL to ingest before asking (required in local mode)")
	sessionID := fs.String("session", "", "session id (server mode)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = config default)")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(cli.ReorderArgs(os.Args[2:]))

	question := cli.JoinArgs(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var resp *models.QueryResponse
	if *serverURL != "" {
		resp, err = askViaHTTP(ctx, *serverURL, *sessionID, *locator, question, *topK)
	} else {
		resp, err = askLocal(ctx, *configPath, *locator, question, *topK, *debug)
	}
	if err != nil {
		fmt.Printf("Ask failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteAnswer(os.Stdout, question, resp, format)
}

func askViaHTTP(ctx context.Context, serverURL, sessionID, locator, question string, topK int) (*models.QueryResponse, error) {
	client := cli.NewClient(serverURL, 5*time.Minute)
	if locator != "" {
		if _, err := client.Ingest(ctx, sessionID, locator); err != nil {
			return nil, err
		}
	}
	return client.Query(ctx, sessionID, question, topK)
}

func askLocal(ctx context.Context, configPath, locator, question string, topK int, debug bool) (*models.QueryResponse, error) {
	if locator == "" {
		return nil, errors.New("--url is required when not using --server")
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug = debug || cfg.Debug
	logger := zap.NewNop()
	if debug {
		if logger, err = utils.NewLogger(true); err != nil {
			return nil, err
		}
		defer logger.Sync()
	}

	components, err := initializeComponents(cfg, logger, debug)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	sess := components.Sessions.Default()
	if _, err := components.Pipeline.Ingest(ctx, sess, locator); err != nil {
		return nil, err
	}
	res, err := components.Pipeline.Query(ctx, sess, question, topK)
	if err != nil {
		return nil, err
	}
	return &models.QueryResponse{
		Answer:    res.Answer.Text,
		Sources:   search.Sources(res.Sources, excerptLength),
		QueryTime: res.Elapsed.Milliseconds(),
	}, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := cli.NewClient(*serverURL, 10*time.Second).Status(ctx)
	if err != nil {
		fmt.Printf("Status failed: %v\n", err)
		os.Exit(1)
	}
	writeStatus(os.Stdout, status, format)
}

func writeStatus(w io.Writer, status map[string]interface{}, format cli.OutputFormat) {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if nested, ok := status[k].(map[string]interface{}); ok {
			fmt.Fprintf(w, "%s:\n", k)
			sub := make([]string, 0, len(nested))
			for nk := range nested {
				sub = append(sub, nk)
			}
			sort.Strings(sub)
			for _, nk := range sub {
				fmt.Fprintf(w, "  %s: %v\n", nk, nested[nk])
			}
			continue
		}
		fmt.Fprintf(w, "%s: %v\n", k, status[k])
	}
}

func printUsage() {
	fmt.Println(`kotae - Ask questions about a web page

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ingest [flags] <url>      Process a URL on a running server
  kotae ask [flags] <question>    Answer a question about a processed URL
  kotae status [flags]            Show server status
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --server string    Server URL (default: http://localhost:8000)
  --session string   Session id (default: the default session)
  --new-session      Create a new session and ingest into it
  --output string    Output format: text or json (default: text)

Ask Flags:
  --server string    Server URL. Empty (default) runs the whole pipeline in-process.
  --url string       URL to ingest first (required in local mode)
  --session string   Session id (server mode)
  --top-k int        Chunks to retrieve (default from config)
  --config string    Config file path (local mode)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8000)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ingest https://go.dev/doc/effective_go
  kotae ask --server http://localhost:8000 "What is a goroutine?"
  kotae ask --url https://go.dev/doc/effective_go "How are errors handled?"
  kotae ask --output json --url https://example.com "What is this page about?"
  kotae status --output json`)
}
