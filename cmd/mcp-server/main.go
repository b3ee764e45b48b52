// Package main provides the MCP server entry point for the docrag service.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stackdocs/docrag/internal/backend"
	"github.com/stackdocs/docrag/internal/chunker"
	"github.com/stackdocs/docrag/internal/config"
	"github.com/stackdocs/docrag/internal/embedding"
	"github.com/stackdocs/docrag/internal/generation"
	mcpserver "github.com/stackdocs/docrag/internal/mcp"
	"github.com/stackdocs/docrag/internal/metadata"
	"github.com/stackdocs/docrag/internal/pipeline"
	"github.com/stackdocs/docrag/internal/retrieval"
	"github.com/stackdocs/docrag/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("DOCRAG_CONFIG", "docrag.yaml"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := newLogger(cfg.Logging.Level)

	provider, err := backend.NewOpenAIProvider(backend.ProviderConfig{
		Provider:        cfg.Embedding.Provider,
		BaseURL:         cfg.Embedding.BaseURL,
		APIKeyEnv:       cfg.Embedding.APIKeyEnv,
		EmbeddingModel:  cfg.Embedding.Model,
		GenerationModel: cfg.Generation.Model,
	})
	if err != nil {
		log.Fatalf("failed to create model provider: %v", err)
	}

	store, err := storage.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port, provider.Embeddings().Dimension())
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	pipe := buildPipeline(cfg, provider, store, logger)

	server := mcpserver.NewServer(&mcpserver.Config{
		Pipeline: pipe,
		Store:    store,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	port := getEnv("PORT", "8080")

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients.
		// Also start HTTP health endpoint in background for local testing.
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting docrag MCP server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

// buildPipeline assembles the document pipeline from configuration.
func buildPipeline(cfg *config.Config, provider *backend.OpenAIProvider, store storage.Store, logger *slog.Logger) *pipeline.Pipeline {
	ch := chunker.New(chunker.Config{
		ChunkSize:     cfg.Chunker.ChunkSize,
		ChunkOverlap:  cfg.Chunker.ChunkOverlap,
		MinChunkSize:  cfg.Chunker.MinChunkSize,
		Separators:    chunker.DefaultSeparators(),
		KeepSeparator: true,
	})

	embedder := embedding.NewManager(provider.Embeddings(), cfg.Embedding.BatchSize, cfg.Embedding.Concurrency, logger)
	engine := retrieval.NewEngine(cfg.Retrieval.Alpha, logger)
	orchestrator := generation.NewOrchestrator(provider.Generation(), generation.Config{
		MaxRetries:     cfg.Generation.MaxRetries,
		AttemptTimeout: time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
		ContextBudget:  cfg.Generation.ContextBudget,
	}, logger)

	var enricher *metadata.Generator
	if cfg.Generation.EnrichMetadata {
		enricher = metadata.NewGenerator(provider.Generation(), 0, logger)
	}

	return pipeline.New(ch, embedder, engine, orchestrator, enricher, store, logger)
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
