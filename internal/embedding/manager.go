// Package embedding turns text into fixed-dimension vectors through a
// pluggable backend, with batching, bounded concurrency, and a
// content-hash cache to avoid recomputation.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// ErrProvider wraps any backend failure during embedding. A failed batch
// fails the whole operation; downstream ranking cannot proceed without
// vectors.
var ErrProvider = errors.New("embedding provider failure")

const (
	// DefaultBatchSize balances payload size against round-trips.
	DefaultBatchSize = 500

	// DefaultConcurrency bounds in-flight batch requests to the backend.
	DefaultConcurrency = 4
)

// Backend is the provider capability the manager drives.
type Backend interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimension() int
}

// Manager batches embedding requests and caches results by content hash.
// It is safe for concurrent use.
type Manager struct {
	backend     Backend
	batchSize   int
	concurrency int
	cache       *Cache
	logger      *slog.Logger
}

// NewManager creates a Manager. Zero batchSize/concurrency fall back to
// defaults; a nil logger falls back to slog.Default.
func NewManager(backend Backend, batchSize, concurrency int, logger *slog.Logger) *Manager {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend:     backend,
		batchSize:   batchSize,
		concurrency: concurrency,
		cache:       NewCache(),
		logger:      logger,
	}
}

// Model returns the backend's model identifier.
func (m *Manager) Model() string { return m.backend.Model() }

// Dimension returns the backend's vector dimension.
func (m *Manager) Dimension() int { return m.backend.Dimension() }

// Embed returns one vector per input text, in input order. Cached texts
// are served without touching the backend; an empty input returns an
// empty result without any backend call.
func (m *Manager) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model := m.backend.Model()
	vectors := make([][]float32, len(texts))

	// Resolve cache hits first and collect the positions still needed.
	var missIdx []int
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = cacheKey(text, model)
		if vec, ok := m.cache.Get(keys[i]); ok {
			vectors[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return vectors, nil
	}

	// Group misses into batches and dispatch them concurrently, bounded
	// by the concurrency limit. Results land at their original positions
	// regardless of completion order.
	type batch struct {
		indices []int
	}
	var batches []batch
	for i := 0; i < len(missIdx); i += m.batchSize {
		end := min(i+m.batchSize, len(missIdx))
		batches = append(batches, batch{indices: missIdx[i:end]})
	}

	sem := make(chan struct{}, m.concurrency)
	errs := make([]error, len(batches))
	var wg sync.WaitGroup

	for bi, b := range batches {
		wg.Add(1)
		go func(bi int, b batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				errs[bi] = ctx.Err()
				return
			}

			batchTexts := make([]string, len(b.indices))
			for j, idx := range b.indices {
				batchTexts[j] = texts[idx]
			}

			result, err := m.backend.EmbedBatch(ctx, batchTexts)
			if err != nil {
				errs[bi] = err
				return
			}
			if len(result) != len(batchTexts) {
				errs[bi] = fmt.Errorf("got %d vectors for %d texts", len(result), len(batchTexts))
				return
			}
			for j, idx := range b.indices {
				vectors[idx] = result[j]
				m.cache.Put(keys[idx], result[j])
			}
		}(bi, b)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
	}

	m.logger.Debug("embedded texts",
		"total", len(texts),
		"cached", len(texts)-len(missIdx),
		"batches", len(batches),
	)
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (m *Manager) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Cosine computes cosine similarity between two vectors. Mismatched
// lengths or a zero-norm vector yield 0.0 rather than an error.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
