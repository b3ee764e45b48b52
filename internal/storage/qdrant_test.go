//go:build integration
// +build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

// setupTestStore creates a test store and ensures the collection exists.
// Skips the test if Qdrant is not running.
func setupTestStore(t *testing.T) *QdrantStore {
	store, err := NewQdrantStore("localhost", 6334, testDimension)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = store.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return store
}

func TestQdrantDocumentRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	doc := &Document{
		ID:         uuid.New().String(),
		Title:      "Roundtrip",
		SourcePath: "test/roundtrip.md",
		Content:    "# Test Document\n\nThis is test content with **markdown**.",
		Metadata:   map[string]string{"origin": "test", "summary": "A roundtrip test document"},
		CreatedAt:  now,
	}

	err := store.PutDocument(ctx, doc)
	require.NoError(t, err, "Failed to put document")

	retrieved, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err, "Failed to get document")

	assert.Equal(t, doc.Title, retrieved.Title)
	assert.Equal(t, doc.SourcePath, retrieved.SourcePath)
	assert.Equal(t, doc.Content, retrieved.Content)
	assert.Equal(t, "test", retrieved.Metadata["origin"])
	assert.Equal(t, doc.CreatedAt.Unix(), retrieved.CreatedAt.Unix())

	require.NoError(t, store.DeleteDocument(ctx, doc.ID))
}

func TestQdrantChunkSearch(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	docID := uuid.New().String()

	doc := &Document{
		ID:         docID,
		Title:      "Search",
		SourcePath: "test/search.md",
		Content:    "body",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.PutDocument(ctx, doc))

	chunks := []*Chunk{
		{
			ID:             uuid.New().String(),
			DocumentID:     docID,
			Index:          0,
			Content:        "chunk near the query vector",
			StartChar:      0,
			EndChar:        27,
			Embedding:      []float32{1, 0, 0, 0},
			EmbeddingModel: "test-model",
		},
		{
			ID:             uuid.New().String(),
			DocumentID:     docID,
			Index:          1,
			Content:        "chunk far from the query vector",
			StartChar:      27,
			EndChar:        58,
			Embedding:      []float32{0, 0, 0, 1},
			EmbeddingModel: "test-model",
		},
	}
	require.NoError(t, store.PutChunks(ctx, docID, chunks))

	candidates, err := store.GetCandidates(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err, "GetCandidates failed")
	require.NotEmpty(t, candidates)

	assert.Equal(t, "chunk near the query vector", candidates[0].Content)
	assert.Equal(t, docID, candidates[0].DocumentID)
	assert.Len(t, candidates[0].Embedding, testDimension, "candidates must carry vectors")

	require.NoError(t, store.DeleteDocument(ctx, docID))
}

func TestQdrantDimensionValidation(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	docID := uuid.New().String()

	chunks := []*Chunk{{
		ID:         uuid.New().String(),
		DocumentID: docID,
		Embedding:  []float32{1, 0}, // wrong dimension
	}}

	err := store.PutChunks(ctx, docID, chunks)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQdrantDocumentNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	_, err := store.GetDocument(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestQdrantDeleteRemovesChunks(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	docID := uuid.New().String()

	require.NoError(t, store.PutDocument(ctx, &Document{
		ID:         docID,
		Title:      "Delete",
		SourcePath: "test/delete.md",
		Content:    "body",
		CreatedAt:  time.Now().UTC(),
	}))
	require.NoError(t, store.PutChunks(ctx, docID, []*Chunk{{
		ID:         uuid.New().String(),
		DocumentID: docID,
		Content:    "to be deleted",
		Embedding:  []float32{0, 1, 0, 0},
	}}))

	before, err := store.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocument(ctx, docID))

	after, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Documents-1, after.Documents)
	assert.Equal(t, before.Chunks-1, after.Chunks)

	_, err = store.GetDocument(ctx, docID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestQdrantListDocumentsPagination(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// More documents than one scroll page (100) so the listing has to
	// paginate past the inclusive offset boundary.
	const count = 105
	ids := make(map[string]bool, count)
	for i := 0; i < count; i++ {
		id := uuid.New().String()
		ids[id] = true
		require.NoError(t, store.PutDocument(ctx, &Document{
			ID:         id,
			Title:      fmt.Sprintf("Paged %03d", i),
			SourcePath: fmt.Sprintf("test/paging/%03d.md", i),
			Content:    "body",
			CreatedAt:  time.Now().UTC(),
		}))
	}
	defer func() {
		for id := range ids {
			_ = store.DeleteDocument(ctx, id)
		}
	}()

	infos, err := store.ListDocuments(ctx)
	require.NoError(t, err)

	listed := make(map[string]int)
	for _, info := range infos {
		if ids[info.ID] {
			listed[info.ID]++
		}
	}
	assert.Len(t, listed, count, "every put document must be listed")
	for id, n := range listed {
		assert.Equal(t, 1, n, "document %s listed %d times", id, n)
	}
}

func TestQdrantListDocuments(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	docID := uuid.New().String()

	require.NoError(t, store.PutDocument(ctx, &Document{
		ID:         docID,
		Title:      "Listed",
		SourcePath: "test/listed.md",
		Content:    "body",
		CreatedAt:  time.Now().UTC(),
	}))

	infos, err := store.ListDocuments(ctx)
	require.NoError(t, err)

	found := false
	for _, info := range infos {
		if info.ID == docID {
			found = true
			assert.Equal(t, "Listed", info.Title)
			assert.Equal(t, "test/listed.md", info.SourcePath)
		}
	}
	assert.True(t, found, "put document missing from listing")

	require.NoError(t, store.DeleteDocument(ctx, docID))
}
