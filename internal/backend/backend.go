// Package backend defines the embedding and generation capabilities the
// pipeline consumes, along with an OpenAI-compatible implementation.
// Providers are selected once at construction from configuration; callers
// only ever see the interfaces.
package backend

import "context"

// EmbeddingBackend converts batches of text into fixed-dimension vectors.
type EmbeddingBackend interface {
	// EmbedBatch embeds all texts in one provider round-trip.
	// The result is order-preserving and one-to-one with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the provider-qualified model identifier. Embeddings
	// from different models are never comparable.
	Model() string

	// Dimension returns the vector dimension produced by Model.
	Dimension() int
}

// GenerationBackend produces text completions for a prompt pair.
type GenerationBackend interface {
	// Generate runs a single completion. systemPrompt may be empty.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Model returns the generation model identifier.
	Model() string
}
