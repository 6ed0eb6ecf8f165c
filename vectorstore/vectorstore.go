// Package vectorstore is the persistence boundary toward the vector
// database. The rest of the system only assumes named collections and
// "higher score means more similar"; everything else is an implementation
// detail behind the Store interface.
package vectorstore

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the backing store cannot be reached.
var ErrUnavailable = errors.New("vector store unavailable")

// Chunk is one retrieval unit headed for storage. The id is assigned by
// the store at upsert time.
type Chunk struct {
	DocumentID string
	Position   int
	Text       string
	Metadata   map[string]any
}

// Result is one similarity match.
type Result struct {
	ChunkID  string
	Text     string
	Score    float64
	Metadata map[string]any
}

type Store interface {
	// EnsureCollection creates the named collection if it does not exist.
	EnsureCollection(ctx context.Context, name string, metadata map[string]string) error

	// Upsert stores the chunks under the collection and returns their
	// store-assigned ids in input order.
	Upsert(ctx context.Context, collection string, chunks []Chunk) ([]string, error)

	// Query embeds queryText and returns up to topK matches ranked by
	// descending similarity.
	Query(ctx context.Context, collection, queryText string, topK int) ([]Result, error)

	// DeleteCollection removes the collection and its chunks, reporting
	// whether it existed.
	DeleteCollection(ctx context.Context, name string) (bool, error)

	// Count returns the number of chunks stored under the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Healthy reports whether the backing store is reachable.
	Healthy(ctx context.Context) bool
}
