// Package pipeline coordinates the ingest flow (chunk, embed, store) and
// the query flow (embed, retrieve, generate).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackdocs/docrag/internal/chunker"
	"github.com/stackdocs/docrag/internal/embedding"
	"github.com/stackdocs/docrag/internal/generation"
	"github.com/stackdocs/docrag/internal/metadata"
	"github.com/stackdocs/docrag/internal/retrieval"
	"github.com/stackdocs/docrag/internal/storage"
)

// Ingest stage names used for error attribution.
const (
	StageChunk = "chunk"
	StageEmbed = "embed"
	StageStore = "store"
)

// IngestResult reports the outcome of one document ingest.
type IngestResult struct {
	DocumentID  string
	ChunkCount  int
	Status      string // "ok" or "failed"
	FailedStage string // set when Status is "failed"
}

// Pipeline wires the chunker, embedding manager, retrieval engine,
// generation orchestrator, and store together.
type Pipeline struct {
	chunker      *chunker.Chunker
	mdChunker    *chunker.MarkdownChunker
	embedder     *embedding.Manager
	engine       *retrieval.Engine
	orchestrator *generation.Orchestrator
	enricher     *metadata.Generator // optional
	store        storage.Store
	logger       *slog.Logger
}

// New creates a Pipeline. enricher may be nil to disable ingest-time
// metadata generation; a nil logger falls back to slog.Default.
func New(
	ch *chunker.Chunker,
	embedder *embedding.Manager,
	engine *retrieval.Engine,
	orchestrator *generation.Orchestrator,
	enricher *metadata.Generator,
	store storage.Store,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:      ch,
		mdChunker:    chunker.NewMarkdownChunker(ch),
		embedder:     embedder,
		engine:       engine,
		orchestrator: orchestrator,
		enricher:     enricher,
		store:        store,
		logger:       logger,
	}
}

// Ingest chunks, embeds, and stores one document. A missing ID or
// timestamp is filled in. On failure the result names the stage that
// failed, and the returned error wraps the cause.
func (p *Pipeline) Ingest(ctx context.Context, doc *storage.Document) (*IngestResult, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(doc.SourcePath), filepath.Ext(doc.SourcePath))
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	result := &IngestResult{DocumentID: doc.ID}

	chunks, err := p.chunkDocument(doc)
	if err != nil {
		result.Status = "failed"
		result.FailedStage = StageChunk
		return result, fmt.Errorf("%s: %w", StageChunk, err)
	}
	p.logger.Debug("chunked document", "document", doc.ID, "chunks", len(chunks))

	// Enrichment is best-effort: a failure is logged and the document is
	// stored without a summary.
	if p.enricher != nil {
		if meta, err := p.enricher.Generate(ctx, doc.Title, doc.Content); err != nil {
			p.logger.Warn("metadata enrichment failed", "document", doc.ID, "error", err)
		} else {
			doc.Metadata["summary"] = meta.Summary
			doc.Metadata["keywords"] = strings.Join(meta.Keywords, ", ")
		}
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = embedText(ch)
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		result.Status = "failed"
		result.FailedStage = StageEmbed
		return result, fmt.Errorf("%s: %w", StageEmbed, err)
	}

	stored := make([]*storage.Chunk, len(chunks))
	for i, ch := range chunks {
		meta := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["title"] = doc.Title

		stored[i] = &storage.Chunk{
			ID:             uuid.New().String(),
			DocumentID:     doc.ID,
			Index:          ch.Index,
			Content:        ch.Content,
			StartChar:      ch.Start,
			EndChar:        ch.End,
			HeaderPath:     ch.HeaderPath,
			Metadata:       meta,
			Embedding:      vectors[i],
			EmbeddingModel: p.embedder.Model(),
		}
	}

	if err := p.store.PutDocument(ctx, doc); err != nil {
		result.Status = "failed"
		result.FailedStage = StageStore
		return result, fmt.Errorf("%s: %w", StageStore, err)
	}
	if err := p.store.PutChunks(ctx, doc.ID, stored); err != nil {
		result.Status = "failed"
		result.FailedStage = StageStore
		return result, fmt.Errorf("%s: %w", StageStore, err)
	}

	result.Status = "ok"
	result.ChunkCount = len(stored)
	p.logger.Info("ingested document",
		"document", doc.ID, "title", doc.Title, "chunks", len(stored))
	return result, nil
}

// Retrieve embeds the question and re-ranks the store's candidate set.
func (p *Pipeline) Retrieve(ctx context.Context, question string, topK int) ([]retrieval.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, chunker.ErrEmptyInput
	}
	if topK <= 0 {
		topK = 5
	}

	queryVec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := p.store.GetCandidates(ctx, queryVec, candidatePool(topK))
	if err != nil {
		return nil, fmt.Errorf("get candidates: %w", err)
	}

	return p.engine.Rank(queryVec, candidates, topK, question), nil
}

// Query answers a question over the indexed collection. Embedding and
// retrieval failures are absorbed into the returned result so callers
// always get a structured response; only blank input is rejected.
func (p *Pipeline) Query(ctx context.Context, question string, topK int, questionType generation.QuestionType) (*generation.Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, chunker.ErrEmptyInput
	}

	results, err := p.Retrieve(ctx, question, topK)
	if err != nil {
		p.logger.Warn("query retrieval failed", "error", err)
		qt := questionType
		if qt == "" {
			qt = generation.Classify(question)
		}
		return &generation.Result{
			ResponseText: "The system could not process this request because document " +
				"retrieval failed. Please try again later.",
			QuestionType: qt,
			Err:          err,
		}, nil
	}

	return p.orchestrator.Generate(ctx, question, results, questionType), nil
}

// DeleteDocument removes a document and its chunks from the store.
func (p *Pipeline) DeleteDocument(ctx context.Context, id string) error {
	return p.store.DeleteDocument(ctx, id)
}

// chunkDocument picks the markdown-aware path for markdown sources.
func (p *Pipeline) chunkDocument(doc *storage.Document) ([]chunker.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(doc.SourcePath))
	if ext == ".md" || ext == ".markdown" {
		return p.mdChunker.Chunk(doc.Content)
	}
	return p.chunker.Chunk(doc.Content)
}

// embedText prepends the header hierarchy so section context is part of
// the embedded representation; stored content stays raw.
func embedText(ch chunker.Chunk) string {
	if ch.HeaderPath == "" {
		return ch.Content
	}
	return ch.HeaderPath + "\n\n" + ch.Content
}

// candidatePool sizes the candidate request: enough over topK that
// re-ranking has room to move results, as long as the store can serve it.
func candidatePool(topK int) int {
	pool := topK * 3
	if pool < 20 {
		pool = 20
	}
	return pool
}
