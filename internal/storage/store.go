// Package storage defines the document/vector store contract and its
// Qdrant and in-memory implementations. The pipeline treats the store as
// an interchangeable capability: candidate pre-filtering by the store is
// an optimization, the retrieval engine re-ranks whatever it receives.
package storage

import "context"

// Store persists documents and their embedded chunks and serves
// similarity candidates for queries.
type Store interface {
	// PutDocument stores or replaces a document record.
	PutDocument(ctx context.Context, doc *Document) error

	// PutChunks stores the embedded chunks of a document.
	PutChunks(ctx context.Context, documentID string, chunks []*Chunk) error

	// GetCandidates returns up to limit chunks nearest to the query
	// embedding, including their stored vectors so callers can re-rank.
	GetCandidates(ctx context.Context, embedding []float32, limit int) ([]*Chunk, error)

	// GetDocument fetches a document by ID. Returns ErrDocumentNotFound
	// if absent.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns listing metadata for all stored documents.
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)

	// Stats returns document and chunk counts.
	Stats(ctx context.Context) (*Stats, error)

	// Health reports whether the store is reachable.
	Health(ctx context.Context) error
}
