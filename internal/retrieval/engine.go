// Package retrieval ranks candidate chunks against a query by combining
// vector similarity with lexical term overlap.
package retrieval

import (
	"log/slog"
	"sort"

	"github.com/stackdocs/docrag/internal/embedding"
	"github.com/stackdocs/docrag/internal/storage"
)

// DefaultAlpha weights the vector score in the combined score; the
// remainder goes to the lexical score.
const DefaultAlpha = 0.7

// Result is one ranked candidate. Ephemeral, produced per query.
type Result struct {
	Chunk         *storage.Chunk
	VectorScore   float64
	LexicalScore  float64
	CombinedScore float64
	Rank          int
}

// Engine re-ranks whatever candidate set the store hands it. Candidate
// pre-filtering upstream is an optimization, never a correctness
// requirement.
type Engine struct {
	alpha     float64
	tokenizer *Tokenizer
	logger    *slog.Logger
}

// NewEngine creates an Engine. Alpha outside (0, 1] falls back to
// DefaultAlpha; a nil logger falls back to slog.Default.
func NewEngine(alpha float64, logger *slog.Logger) *Engine {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		alpha:     alpha,
		tokenizer: NewTokenizer(),
		logger:    logger,
	}
}

// Rank scores candidates against the query embedding and returns at most
// topK results sorted by combined score descending, ties broken by chunk
// index ascending. When queryText is non-empty a lexical overlap score is
// blended in; otherwise the combined score is the vector score alone.
// An empty candidate set yields an empty result, not an error.
func (e *Engine) Rank(queryEmbedding []float32, candidates []*storage.Chunk, topK int, queryText string) []Result {
	if len(candidates) == 0 || topK <= 0 {
		return nil
	}

	var queryTerms map[string]struct{}
	if queryText != "" {
		queryTerms = e.tokenizer.TermSet(queryText)
	}

	results := make([]Result, 0, len(candidates))
	for _, chunk := range candidates {
		r := Result{
			Chunk:       chunk,
			VectorScore: embedding.Cosine(queryEmbedding, chunk.Embedding),
		}
		if len(queryTerms) > 0 {
			r.LexicalScore = e.lexicalOverlap(queryTerms, chunk.Content)
			r.CombinedScore = e.alpha*r.VectorScore + (1-e.alpha)*r.LexicalScore
		} else {
			r.CombinedScore = r.VectorScore
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})

	if topK < len(results) {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	e.logger.Debug("ranked candidates",
		"candidates", len(candidates),
		"returned", len(results),
		"lexical", len(queryTerms) > 0,
	)
	return results
}

// lexicalOverlap is the fraction of distinct query terms present in the
// chunk content.
func (e *Engine) lexicalOverlap(queryTerms map[string]struct{}, content string) float64 {
	chunkTerms := e.tokenizer.TermSet(content)
	matched := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
