package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testDoc(id, path string) *Document {
	return &Document{
		ID:         id,
		Title:      "Title " + id,
		SourcePath: path,
		Content:    "content of " + id,
		Metadata:   map[string]string{"origin": "test"},
		CreatedAt:  time.Now().UTC(),
	}
}

// TestMemoryStore_DocumentRoundTrip covers put, get, list, and delete.
func TestMemoryStore_DocumentRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	doc := testDoc("d1", "a/doc.md")
	if err := store.PutDocument(ctx, doc); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}

	got, err := store.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got.Title != doc.Title || got.SourcePath != doc.SourcePath {
		t.Errorf("Retrieved document differs: %+v", got)
	}

	if err := store.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if _, err := store.GetDocument(ctx, "d1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
}

// TestMemoryStore_ListSortedByPath verifies listings order by source path.
func TestMemoryStore_ListSortedByPath(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, p := range []string{"c.md", "a.md", "b.md"} {
		if err := store.PutDocument(ctx, testDoc(p, p)); err != nil {
			t.Fatalf("PutDocument failed: %v", err)
		}
	}

	infos, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(infos))
	}
	if infos[0].SourcePath != "a.md" || infos[2].SourcePath != "c.md" {
		t.Errorf("Not sorted by path: %v", infos)
	}
}

// TestMemoryStore_GetCandidates verifies nearest-neighbor ordering and
// the limit.
func TestMemoryStore_GetCandidates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	chunks := []*Chunk{
		{ID: "far", DocumentID: "d", Index: 0, Embedding: []float32{0, 1}},
		{ID: "near", DocumentID: "d", Index: 1, Embedding: []float32{1, 0.1}},
		{ID: "mid", DocumentID: "d", Index: 2, Embedding: []float32{1, 1}},
	}
	if err := store.PutChunks(ctx, "d", chunks); err != nil {
		t.Fatalf("PutChunks failed: %v", err)
	}

	got, err := store.GetCandidates(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("GetCandidates failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != "near" {
		t.Errorf("Nearest first: expected 'near', got %q", got[0].ID)
	}
	if got[0].Embedding == nil {
		t.Errorf("Candidates must carry their vectors for re-ranking")
	}
}

// TestMemoryStore_DeleteRemovesChunks verifies chunks go with their
// document.
func TestMemoryStore_DeleteRemovesChunks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.PutDocument(ctx, testDoc("d1", "d1.md")); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}
	if err := store.PutChunks(ctx, "d1", []*Chunk{{ID: "c1", DocumentID: "d1", Embedding: []float32{1}}}); err != nil {
		t.Fatalf("PutChunks failed: %v", err)
	}
	if err := store.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Documents != 0 || stats.Chunks != 0 {
		t.Errorf("Expected empty store, got %+v", stats)
	}
}

// TestMemoryStore_Stats counts documents and chunks across documents.
func TestMemoryStore_Stats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.PutDocument(ctx, testDoc("d1", "d1.md"))
	store.PutDocument(ctx, testDoc("d2", "d2.md"))
	store.PutChunks(ctx, "d1", []*Chunk{{ID: "a"}, {ID: "b"}})
	store.PutChunks(ctx, "d2", []*Chunk{{ID: "c"}})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Documents != 2 || stats.Chunks != 3 {
		t.Errorf("Expected 2 docs / 3 chunks, got %+v", stats)
	}
}
