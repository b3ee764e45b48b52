package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/stackdocs/docrag/internal/embedding"
)

// MemoryStore is an in-process Store for tests and local runs. Candidate
// selection is brute-force cosine over all chunks; the retrieval engine
// re-ranks the result either way.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]*Document
	chunks map[string][]*Chunk // documentID -> chunks
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]*Document),
		chunks: make(map[string][]*Chunk),
	}
}

// PutDocument implements Store.
func (s *MemoryStore) PutDocument(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

// PutChunks implements Store.
func (s *MemoryStore) PutChunks(_ context.Context, documentID string, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[documentID] = append([]*Chunk{}, chunks...)
	return nil
}

// GetCandidates implements Store.
func (s *MemoryStore) GetCandidates(_ context.Context, vector []float32, limit int) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk *Chunk
		score float64
	}
	var all []scored
	for _, chunks := range s.chunks {
		for _, chunk := range chunks {
			all = append(all, scored{chunk, embedding.Cosine(vector, chunk.Embedding)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })

	if limit > len(all) {
		limit = len(all)
	}
	out := make([]*Chunk, 0, limit)
	for _, sc := range all[:limit] {
		out = append(out, sc.chunk)
	}
	return out, nil
}

// GetDocument implements Store.
func (s *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// DeleteDocument implements Store.
func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments implements Store.
func (s *MemoryStore) ListDocuments(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]DocumentInfo, 0, len(s.docs))
	for _, doc := range s.docs {
		infos = append(infos, DocumentInfo{
			ID:         doc.ID,
			Title:      doc.Title,
			SourcePath: doc.SourcePath,
			CreatedAt:  doc.CreatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SourcePath < infos[j].SourcePath })
	return infos, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, chunks := range s.chunks {
		total += len(chunks)
	}
	return &Stats{Documents: len(s.docs), Chunks: total}, nil
}

// Health implements Store.
func (s *MemoryStore) Health(context.Context) error { return nil }
