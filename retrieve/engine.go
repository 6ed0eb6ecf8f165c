// Package retrieve fans a query out across the active collections and
// merges the hits into one ranked list.
package retrieve

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/techcoach/careerkb/registry"
	"github.com/techcoach/careerkb/vectorstore"
)

// SearchResult is one retrieved chunk, annotated with where it ranked
// inside its own collection and across the merged list.
type SearchResult struct {
	SourceFile           string
	Text                 string
	Score                float64
	CollectionKey        string
	Metadata             map[string]any
	RankWithinCollection int
	RankOverall          int
}

// Engine tracks which collections hold data and queries only those.
type Engine struct {
	vectors  vectorstore.Store
	registry *registry.Registry
	logger   *log.Logger

	mu     sync.RWMutex
	active map[string]bool
}

func NewEngine(vectors vectorstore.Store, reg *registry.Registry, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		vectors:  vectors,
		registry: reg,
		logger:   logger,
		active:   make(map[string]bool),
	}
}

// Activate marks a collection as holding data. Ingestion calls this after
// the first successful upsert into a collection.
func (e *Engine) Activate(key string) error {
	if !e.registry.Has(key) {
		return fmt.Errorf("activate: %w: %s", registry.ErrUnknownCollection, key)
	}
	e.mu.Lock()
	e.active[key] = true
	e.mu.Unlock()
	return nil
}

// Deactivate drops a collection from the search fan-out, typically after
// a reset emptied it.
func (e *Engine) Deactivate(key string) {
	e.mu.Lock()
	delete(e.active, key)
	e.mu.Unlock()
}

// RebuildFromStore re-derives the active set from the vector store, so a
// restart picks up collections populated in earlier runs. Empty
// collections stay inactive.
func (e *Engine) RebuildFromStore(ctx context.Context) error {
	active := make(map[string]bool)
	for _, key := range e.registry.Keys() {
		count, err := e.vectors.Count(ctx, key)
		if err != nil {
			return fmt.Errorf("count %s: %w", key, err)
		}
		if count > 0 {
			active[key] = true
		}
	}

	e.mu.Lock()
	e.active = active
	e.mu.Unlock()

	e.logger.Printf("retrieval engine tracking %d active collections", len(active))
	return nil
}

// ActiveCollections returns the currently searchable collection keys in
// registry order.
func (e *Engine) ActiveCollections() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.active))
	for _, key := range e.registry.Keys() {
		if e.active[key] {
			keys = append(keys, key)
		}
	}
	return keys
}

// Search queries the named collections, or every active collection when
// collectionKeys is empty, and merges the hits by score. A collection
// that errors is logged and skipped so one bad collection cannot sink
// the whole query. With nothing to search the result is empty, not an
// error.
//
// Scores are merged raw: all collections share one embedding space, so
// they are comparable in practice, but nothing here normalizes them.
func (e *Engine) Search(ctx context.Context, query string, collectionKeys []string, topK int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = 5
	}

	keys, err := e.targetCollections(collectionKeys)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []SearchResult{}, nil
	}

	merged := make([]SearchResult, 0, topK*len(keys))
	for _, key := range keys {
		def, defErr := e.registry.Get(key)
		if defErr != nil {
			return nil, defErr
		}

		perCollection := topK
		if def.SimilarityTopK < perCollection {
			perCollection = def.SimilarityTopK
		}

		hits, err := e.vectors.Query(ctx, key, query, perCollection)
		if err != nil {
			e.logger.Printf("search in %s failed, skipping: %v", key, err)
			continue
		}

		for i, hit := range hits {
			merged = append(merged, SearchResult{
				SourceFile:           sourceFile(hit.Metadata),
				Text:                 hit.Text,
				Score:                hit.Score,
				CollectionKey:        key,
				Metadata:             hit.Metadata,
				RankWithinCollection: i + 1,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if limit := topK * len(keys); len(merged) > limit {
		merged = merged[:limit]
	}
	for i := range merged {
		merged[i].RankOverall = i + 1
	}
	return merged, nil
}

// targetCollections resolves the search fan-out: explicit keys are
// validated against the registry and used as given; an empty list means
// every active collection.
func (e *Engine) targetCollections(collectionKeys []string) ([]string, error) {
	if len(collectionKeys) == 0 {
		return e.ActiveCollections(), nil
	}
	for _, key := range collectionKeys {
		if !e.registry.Has(key) {
			return nil, fmt.Errorf("%w: %q", registry.ErrUnknownCollection, key)
		}
	}
	return collectionKeys, nil
}

// contextTopK is how many candidates BuildContext pulls before the token
// budget cuts the list off.
const contextTopK = 10

// BuildContext renders search hits into one prompt-ready block, stopping
// before the estimated token budget is exceeded. Token use is estimated
// as one token per four characters.
func (e *Engine) BuildContext(ctx context.Context, query string, collectionKeys []string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	results, err := e.Search(ctx, query, collectionKeys, contextTopK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	const delimiter = "\n---\n"

	var builder strings.Builder
	used := 0
	for i, result := range results {
		block := fmt.Sprintf("[Collection: %s | Source: %s | Score: %.3f]\n%s",
			result.CollectionKey, result.SourceFile, result.Score, result.Text)

		cost := (len(block) + len(delimiter)) / 4
		if used+cost > maxTokens && i > 0 {
			break
		}

		if i > 0 {
			builder.WriteString(delimiter)
		}
		builder.WriteString(block)
		used += cost
	}
	return builder.String(), nil
}

func sourceFile(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata["source_file"].(string); ok {
		return value
	}
	return ""
}
