// Package config loads YAML configuration with defaults and environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables for the service.
type Config struct {
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkerConfig controls text splitting.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MinChunkSize int `yaml:"min_chunk_size"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "openai" or "local"
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
}

// RetrievalConfig tunes hybrid ranking.
type RetrievalConfig struct {
	TopK  int     `yaml:"top_k"`
	Alpha float64 `yaml:"alpha"` // vector score weight, lexical gets 1-alpha
}

// GenerationConfig tunes the orchestrator.
type GenerationConfig struct {
	Model          string `yaml:"model"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ContextBudget  int    `yaml:"context_budget"`
	EnrichMetadata bool   `yaml:"enrich_metadata"`
}

// QdrantConfig locates the vector store.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Chunker: ChunkerConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			MinChunkSize: 100,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			BatchSize:   500,
			Concurrency: 4,
		},
		Retrieval: RetrievalConfig{
			TopK:  5,
			Alpha: 0.7,
		},
		Generation: GenerationConfig{
			Model:          "gpt-4o",
			MaxRetries:     3,
			TimeoutSeconds: 60,
			ContextBudget:  12000,
			EnrichMetadata: false,
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, overlaying defaults, then applies
// environment overrides. A missing file is not an error; defaults and
// environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with environment variables, matching the
// deployment knobs the server reads.
func (c *Config) applyEnv() {
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.Qdrant.Host = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Qdrant.Port = port
		}
	}
	if v := os.Getenv("DOCRAG_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("DOCRAG_GENERATION_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("DOCRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
