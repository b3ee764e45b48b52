// Package main provides the docrag CLI for indexing and querying documents.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stackdocs/docrag/internal/backend"
	"github.com/stackdocs/docrag/internal/chunker"
	"github.com/stackdocs/docrag/internal/config"
	"github.com/stackdocs/docrag/internal/embedding"
	"github.com/stackdocs/docrag/internal/generation"
	"github.com/stackdocs/docrag/internal/metadata"
	"github.com/stackdocs/docrag/internal/pipeline"
	"github.com/stackdocs/docrag/internal/retrieval"
	"github.com/stackdocs/docrag/internal/source"
	"github.com/stackdocs/docrag/internal/storage"
)

var (
	configPath string

	githubRepo string
	githubPath string

	queryTopK int
	queryType string
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Document indexing and question answering tool",
	Long:  "CLI tool for ingesting documents into Qdrant and answering questions over them",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index documents from a local directory or a GitHub repository",
	Long: `Chunks, embeds, and stores documents in Qdrant.

With a directory argument, every markdown and text file under it is
indexed. With --github owner/repo, files are fetched from the repository
instead (--path selects a subdirectory).

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index document and chunk counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "docrag.yaml", "path to config file")
	ingestCmd.Flags().StringVar(&githubRepo, "github", "", "GitHub repository as owner/repo")
	ingestCmd.Flags().StringVar(&githubPath, "path", "", "base path inside the GitHub repository")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "number of passages to ground the answer on")
	queryCmd.Flags().StringVar(&queryType, "type", "", "question type: summary, comparison, how_to, key_points, general")
	rootCmd.AddCommand(ingestCmd, queryCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	if githubRepo == "" && len(args) == 0 {
		return fmt.Errorf("either a directory argument or --github owner/repo is required")
	}

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.store.Close()

	docs, err := loadDocuments(ctx, args)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d documents\n", len(docs))

	var ok, failed, chunks int
	for _, doc := range docs {
		result, err := env.pipe.Ingest(ctx, doc)
		if err != nil {
			failed++
			fmt.Printf("  failed %s (%s): %v\n", doc.SourcePath, result.FailedStage, err)
			continue
		}
		ok++
		chunks += result.ChunkCount
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Documents: %d/%d\n", ok, ok+failed)
	fmt.Printf("  Chunks: %d\n", chunks)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.store.Close()

	result, err := env.pipe.Query(ctx, args[0], queryTopK, generation.QuestionType(queryType))
	if err != nil {
		return err
	}

	fmt.Println(result.ResponseText)
	if result.Err != nil {
		fmt.Printf("\nGeneration error after %d attempts: %v\n", result.Attempts, result.Err)
	}
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, s := range result.Sources {
			fmt.Printf("  %d. %s (%.2f)\n", i+1, s.Title, s.Score)
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.store.Close()

	stats, err := env.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collection stats: %w", err)
	}

	fmt.Printf("Documents: %d\n", stats.Documents)
	fmt.Printf("Chunks: %d\n", stats.Chunks)
	return nil
}

// cliEnv bundles the components a command needs.
type cliEnv struct {
	cfg   *config.Config
	store *storage.QdrantStore
	pipe  *pipeline.Pipeline
}

// setup connects to Qdrant and assembles the pipeline from configuration.
func setup(ctx context.Context) (*cliEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	provider, err := backend.NewOpenAIProvider(backend.ProviderConfig{
		Provider:        cfg.Embedding.Provider,
		BaseURL:         cfg.Embedding.BaseURL,
		APIKeyEnv:       cfg.Embedding.APIKeyEnv,
		EmbeddingModel:  cfg.Embedding.Model,
		GenerationModel: cfg.Generation.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}

	store, err := storage.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port, provider.Embeddings().Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	if err := store.Health(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("Qdrant health check failed: %w", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

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

	return &cliEnv{
		cfg:   cfg,
		store: store,
		pipe:  pipeline.New(ch, embedder, engine, orchestrator, enricher, store, logger),
	}, nil
}

// loadDocuments picks the GitHub or filesystem source based on flags.
func loadDocuments(ctx context.Context, args []string) ([]*storage.Document, error) {
	if githubRepo != "" {
		owner, repo, ok := splitRepo(githubRepo)
		if !ok {
			return nil, fmt.Errorf("invalid --github value %q, expected owner/repo", githubRepo)
		}
		src, err := source.NewGitHubSource(owner, repo, githubPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub source: %w", err)
		}
		return src.FetchAll(ctx)
	}
	return source.NewFilesystemSource(args[0]).FetchAll()
}

func splitRepo(s string) (owner, repo string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], s[i+1:], s[:i] != "" && s[i+1:] != ""
		}
	}
	return "", "", false
}
