package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// vectorName is the named vector slot for chunk embeddings. Parent
// documents carry no vector and share the collection with chunks.
const vectorName = "content"

// QdrantStore implements Store against a Qdrant server over gRPC.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStore connects to Qdrant and validates health with retry,
// failing fast if the server stays unreachable. dimension must match the
// embedding backend in use.
func NewQdrantStore(host string, port int, dimension int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, dimension: dimension}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return s, nil
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(b, ctx))
}

// Health implements Store.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection and payload indexes if missing.
// Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without these indexes, filtered queries scan the whole collection.
	for _, field := range []string{"type", "document_id", "source_path"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for %s: %w", field, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection.
func (s *QdrantStore) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// PutDocument implements Store. Documents are stored as vectorless points
// so full content can be fetched after chunk-level search.
func (s *QdrantStore) PutDocument(ctx context.Context, doc *Document) error {
	payload := map[string]any{
		"type":        "parent",
		"title":       doc.Title,
		"source_path": doc.SourcePath,
		"content":     doc.Content,
		"created_at":  doc.CreatedAt.Format(time.RFC3339),
		"metadata":    metadataToAny(doc.Metadata),
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(payload),
	}
	return s.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

// PutChunks implements Store. Chunks are validated against the configured
// dimension and upserted in batches of 100.
func (s *QdrantStore) PutChunks(ctx context.Context, documentID string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}

	const batchSize = 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(chunk.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"type":            "chunk",
					"document_id":     documentID,
					"chunk_index":     chunk.Index,
					"header_path":     chunk.HeaderPath,
					"content":         chunk.Content,
					"start_char":      chunk.StartChar,
					"end_char":        chunk.EndChar,
					"embedding_model": chunk.EmbeddingModel,
					"metadata":        metadataToAny(chunk.Metadata),
				}),
			}
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// GetCandidates implements Store. Stored vectors are returned with each
// chunk so the retrieval engine can re-rank the candidate set.
func (s *QdrantStore) GetCandidates(ctx context.Context, embedding []float32, limit int) ([]*Chunk, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	name := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &name,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("type", "chunk")},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}

	chunks := make([]*Chunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		chunk := &Chunk{
			ID:             result.Id.GetUuid(),
			DocumentID:     payload["document_id"].GetStringValue(),
			Index:          int(payload["chunk_index"].GetIntegerValue()),
			HeaderPath:     payload["header_path"].GetStringValue(),
			Content:        payload["content"].GetStringValue(),
			StartChar:      int(payload["start_char"].GetIntegerValue()),
			EndChar:        int(payload["end_char"].GetIntegerValue()),
			EmbeddingModel: payload["embedding_model"].GetStringValue(),
			Metadata:       metadataFromValue(payload["metadata"]),
			Embedding:      extractVector(result.GetVectors()),
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// GetDocument implements Store.
func (s *QdrantStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrDocumentNotFound
	}

	payload := result[0].Payload
	if typeVal, ok := payload["type"]; !ok || typeVal.GetStringValue() != "parent" {
		return nil, ErrDocumentNotFound
	}

	createdAt, err := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
	if err != nil {
		createdAt = time.Time{}
	}

	return &Document{
		ID:         id,
		Title:      payload["title"].GetStringValue(),
		SourcePath: payload["source_path"].GetStringValue(),
		Content:    payload["content"].GetStringValue(),
		Metadata:   metadataFromValue(payload["metadata"]),
		CreatedAt:  createdAt,
	}, nil
}

// DeleteDocument implements Store. Removes the parent point and every
// chunk referencing it.
func (s *QdrantStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", id)},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ListDocuments implements Store. Scrolls all parent points, sorted by
// source path for stable output.
func (s *QdrantStore) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var infos []DocumentInfo
	var offset *qdrant.PointId

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("type", "parent")},
	}
	batchSize := uint32(100)
	seen := make(map[string]bool)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter:         filter,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("title", "source_path", "created_at"),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll documents: %w", err)
		}

		for _, result := range results {
			// The scroll offset is inclusive, so each page after the first
			// starts with the last point of the previous one.
			id := result.Id.GetUuid()
			if seen[id] {
				continue
			}
			seen[id] = true
			createdAt, _ := time.Parse(time.RFC3339, result.Payload["created_at"].GetStringValue())
			infos = append(infos, DocumentInfo{
				ID:         id,
				Title:      result.Payload["title"].GetStringValue(),
				SourcePath: result.Payload["source_path"].GetStringValue(),
				CreatedAt:  createdAt,
			})
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].SourcePath < infos[j].SourcePath })
	return infos, nil
}

// Stats implements Store. Chunk count is total points minus parents.
func (s *QdrantStore) Stats(ctx context.Context) (*Stats, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Documents: len(docs),
		Chunks:    int(collection.GetPointsCount()) - len(docs),
	}, nil
}

func metadataToAny(meta map[string]string) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func metadataFromValue(val *qdrant.Value) map[string]string {
	out := make(map[string]string)
	if val == nil || val.GetStructValue() == nil {
		return out
	}
	for k, v := range val.GetStructValue().GetFields() {
		out[k] = v.GetStringValue()
	}
	return out
}

// extractVector pulls the named chunk vector out of a query result.
func extractVector(vectors *qdrant.VectorsOutput) []float32 {
	if vectors == nil {
		return nil
	}
	named := vectors.GetVectors()
	if named == nil {
		return nil
	}
	vec, ok := named.GetVectors()[vectorName]
	if !ok || vec == nil {
		return nil
	}
	return vec.GetData()
}
