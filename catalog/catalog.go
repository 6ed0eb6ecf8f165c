// Package catalog is the relational bookkeeping side of the platform: one
// row per uploaded document, decoupled from vector-store internals so that
// listing and deleting documents never touches the vector database.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a missing document record.
var ErrNotFound = errors.New("document record not found")

// Record is the single source of truth for "what has been uploaded".
type Record struct {
	ID            string
	Filename      string
	FilePath      string
	CollectionKey string
	ChunkIDs      []string
	FileSizeBytes int64
	Description   string
	Abstract      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Store interface {
	Create(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	ListByCollection(ctx context.Context, collectionKey string) ([]Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByCollection(ctx context.Context, collectionKey string) (int, error)
	DeleteAll(ctx context.Context) error
	CountByCollection(ctx context.Context) (map[string]int, error)
}
