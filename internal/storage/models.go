package storage

import "time"

// Document is a full ingested document. Immutable once stored except for
// metadata updates.
type Document struct {
	ID         string
	Title      string
	SourcePath string
	Content    string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Chunk is one retrievable segment of a document, carrying its embedding.
// StartChar/EndChar are offsets into the parent document's content.
type Chunk struct {
	ID             string
	DocumentID     string
	Index          int
	Content        string
	StartChar      int
	EndChar        int
	HeaderPath     string
	Metadata       map[string]string
	Embedding      []float32
	EmbeddingModel string
}

// DocumentInfo is the listing view of a stored document.
type DocumentInfo struct {
	ID         string
	Title      string
	SourcePath string
	CreatedAt  time.Time
}

// Stats summarizes index contents.
type Stats struct {
	Documents int
	Chunks    int
}

// CollectionName is the single Qdrant collection holding documents and chunks.
const CollectionName = "documents"
