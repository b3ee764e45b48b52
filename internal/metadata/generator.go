// Package metadata enriches documents at ingest time with a generated
// summary and keyword list. Enrichment is best-effort; the pipeline
// tolerates failure and stores the document without it.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stackdocs/docrag/internal/backend"
)

// DefaultMaxChars caps document content sent for enrichment.
const DefaultMaxChars = 48000

// DocumentMetadata is the generated enrichment for a document.
type DocumentMetadata struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Generator produces document metadata through the generation backend.
type Generator struct {
	backend  backend.GenerationBackend
	maxChars int
	logger   *slog.Logger
}

// NewGenerator creates a Generator. maxChars <= 0 uses DefaultMaxChars.
func NewGenerator(gen backend.GenerationBackend, maxChars int, logger *slog.Logger) *Generator {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{backend: gen, maxChars: maxChars, logger: logger}
}

// Generate produces a summary and keyword list for a document.
func (g *Generator) Generate(ctx context.Context, title, content string) (*DocumentMetadata, error) {
	truncated := g.truncate(content)

	system := "You analyze documents for an indexing system. " +
		"Respond with a JSON object only, no surrounding text."
	prompt := fmt.Sprintf(`Analyze this document and provide:
1. A concise summary (1-2 sentences) of its main topic
2. A list of up to 10 keywords or key phrases

Document title: %s

Document content:
%s

Respond in JSON format:
{"summary": "...", "keywords": ["...", "..."]}`, title, truncated)

	raw, err := g.backend.Generate(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("metadata generation: %w", err)
	}

	var meta DocumentMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("%w: parse metadata response: %v", backend.ErrBadResponse, err)
	}
	return &meta, nil
}

// truncate limits content to the configured character budget.
func (g *Generator) truncate(content string) string {
	if len(content) <= g.maxChars {
		return content
	}
	g.logger.Warn("truncating content for metadata generation",
		"from", len(content), "to", g.maxChars)
	return content[:g.maxChars]
}
