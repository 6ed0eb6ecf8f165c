package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/techcoach/careerkb/embeddings"
)

// MemoryStore is a brute-force cosine-similarity store. It backs tests and
// local runs where no Postgres is available.
type MemoryStore struct {
	mu          sync.RWMutex
	embedder    embeddings.Embedder
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	metadata map[string]string
	chunks   []memoryChunk
}

type memoryChunk struct {
	id       string
	text     string
	vector   []float32
	metadata map[string]any
}

func NewMemoryStore(embedder embeddings.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		collections: make(map[string]*memoryCollection),
	}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, name string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &memoryCollection{metadata: metadata}
	}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, chunks []Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to upsert")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = &memoryCollection{}
		s.collections[collection] = col
	}

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		id := uuid.New().String()
		col.chunks = append(col.chunks, memoryChunk{
			id:       id,
			text:     chunk.Text,
			vector:   vectors[i],
			metadata: chunk.Metadata,
		})
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection, queryText string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	vectors, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	query := vectors[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}

	results := make([]Result, 0, len(col.chunks))
	for _, chunk := range col.chunks {
		results = append(results, Result{
			ChunkID:  chunk.id,
			Text:     chunk.text,
			Score:    cosine(query, chunk.vector),
			Metadata: chunk.metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.collections[name]
	delete(s.collections, name)
	return ok, nil
}

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}
	return len(col.chunks), nil
}

func (s *MemoryStore) Healthy(_ context.Context) bool { return true }

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Store = (*MemoryStore)(nil)
