package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefault verifies the default configuration is internally consistent.
func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Chunker.ChunkSize != 1000 || cfg.Chunker.ChunkOverlap != 200 {
		t.Errorf("Chunker defaults wrong: %+v", cfg.Chunker)
	}
	if cfg.Retrieval.Alpha != 0.7 {
		t.Errorf("Alpha default: got %v", cfg.Retrieval.Alpha)
	}
	if cfg.Qdrant.Port != 6334 {
		t.Errorf("Qdrant port default: got %d", cfg.Qdrant.Port)
	}
}

// TestLoad_MissingFile verifies a missing file falls back to defaults.
func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chunker.ChunkSize != 1000 {
		t.Errorf("Expected defaults, got chunk size %d", cfg.Chunker.ChunkSize)
	}
}

// TestLoad_FileOverlaysDefaults verifies file values override defaults
// while unset fields keep them.
func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrag.yaml")
	content := []byte("chunker:\n  chunk_size: 500\nretrieval:\n  alpha: 0.5\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chunker.ChunkSize != 500 {
		t.Errorf("File override lost: chunk size %d", cfg.Chunker.ChunkSize)
	}
	if cfg.Retrieval.Alpha != 0.5 {
		t.Errorf("File override lost: alpha %v", cfg.Retrieval.Alpha)
	}
	if cfg.Chunker.ChunkOverlap != 200 {
		t.Errorf("Unset field lost its default: overlap %d", cfg.Chunker.ChunkOverlap)
	}
}

// TestLoad_BadYAML verifies parse failures surface as errors.
func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("chunker: ["), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Errorf("Expected parse error")
	}
}

// TestLoad_EnvOverrides verifies environment variables beat file values.
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("DOCRAG_EMBEDDING_MODEL", "text-embedding-3-large")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Qdrant.Host != "qdrant.internal" {
		t.Errorf("QDRANT_HOST not applied: %q", cfg.Qdrant.Host)
	}
	if cfg.Qdrant.Port != 7000 {
		t.Errorf("QDRANT_PORT not applied: %d", cfg.Qdrant.Port)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("DOCRAG_EMBEDDING_MODEL not applied: %q", cfg.Embedding.Model)
	}
}
