package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stackdocs/docrag/internal/generation"
	"github.com/stackdocs/docrag/internal/pipeline"
	"github.com/stackdocs/docrag/internal/storage"
)

// makeAskHandler creates the ask_docs tool handler.
// Answer flow:
// 1. Embed the question and retrieve the top passages
// 2. Generate a grounded answer with the question-type template
// 3. Return the answer with source provenance
// Retrieval and generation failures come back as a structured result with
// the Error field set rather than a tool error, so clients always get a
// readable answer.
func makeAskHandler(p *pipeline.Pipeline) func(
	context.Context, *mcp.CallToolRequest, AskDocsInput,
) (*mcp.CallToolResult, AskDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocsInput) (
		*mcp.CallToolResult, AskDocsOutput, error,
	) {
		maxSources := input.MaxSources
		if maxSources <= 0 {
			maxSources = 5
		}

		result, err := p.Query(ctx, input.Question, maxSources, generation.QuestionType(input.QuestionType))
		if err != nil {
			return nil, AskDocsOutput{}, fmt.Errorf("query failed: %w", err)
		}

		sources := make([]AnswerSource, 0, len(result.Sources))
		for _, s := range result.Sources {
			sources = append(sources, AnswerSource{
				ChunkID:    s.ChunkID,
				DocumentID: s.DocumentID,
				Title:      s.Title,
				Score:      s.Score,
				Excerpt:    s.Excerpt,
			})
		}

		out := AskDocsOutput{
			Answer:       result.ResponseText,
			Sources:      sources,
			QuestionType: string(result.QuestionType),
			KeyPoints:    result.KeyPoints,
			Attempts:     result.Attempts,
		}
		if result.Err != nil {
			out.Error = result.Err.Error()
		}
		return nil, out, nil
	}
}

// makeSearchHandler creates the search_docs tool handler. It runs hybrid
// retrieval and returns the ranked passages without generation.
func makeSearchHandler(p *pipeline.Pipeline) func(
	context.Context, *mcp.CallToolRequest, SearchDocsInput,
) (*mcp.CallToolResult, SearchDocsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchDocsInput) (
		*mcp.CallToolResult, SearchDocsOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		results, err := p.Retrieve(ctx, input.Query, maxResults)
		if err != nil {
			return nil, SearchDocsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchDocsOutput{
				Results: []SearchResult{},
				Message: "No matching passages found. Try broader search terms.",
			}, nil
		}

		out := make([]SearchResult, 0, len(results))
		for _, r := range results {
			out = append(out, SearchResult{
				DocumentID:   r.Chunk.DocumentID,
				Title:        r.Chunk.Metadata["title"],
				HeaderPath:   r.Chunk.HeaderPath,
				Content:      r.Chunk.Content,
				VectorScore:  r.VectorScore,
				LexicalScore: r.LexicalScore,
				Score:        r.CombinedScore,
			})
		}
		return nil, SearchDocsOutput{Results: out}, nil
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(store storage.Store) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		infos, err := store.ListDocuments(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		docs := make([]DocumentEntry, 0, len(infos))
		for _, info := range infos {
			docs = append(docs, DocumentEntry{
				ID:         info.ID,
				Title:      info.Title,
				SourcePath: info.SourcePath,
				CreatedAt:  info.CreatedAt,
			})
		}
		return nil, ListDocumentsOutput{Documents: docs, Count: len(docs)}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(store storage.Store) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("failed to read collection stats: %w", err)
		}
		return nil, IndexStatusOutput{
			TotalDocuments: stats.Documents,
			TotalChunks:    stats.Chunks,
		}, nil
	}
}
