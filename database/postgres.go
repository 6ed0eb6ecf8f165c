// Package database owns the Postgres connection pool and the knowledge
// base schema.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool opens a pgx pool and verifies connectivity before
// handing it back.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the pgvector extension and the knowledge base
// tables if they do not exist. The embedding dimension is fixed at schema
// creation and must match the configured embedder.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS kb_collections (
			name       TEXT PRIMARY KEY,
			metadata   JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS kb_documents (
			id          UUID PRIMARY KEY,
			filename    TEXT NOT NULL,
			file_path   TEXT NOT NULL,
			collection  TEXT NOT NULL,
			chunk_ids   JSONB,
			file_size   BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			abstract    TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kb_chunks (
			id          UUID PRIMARY KEY,
			collection  TEXT NOT NULL,
			document_id UUID NOT NULL,
			position    INT NOT NULL,
			content     TEXT NOT NULL,
			metadata    JSONB,
			embedding   VECTOR(%d),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS kb_chunks_collection_idx ON kb_chunks (collection)`,
		`CREATE INDEX IF NOT EXISTS kb_chunks_document_idx ON kb_chunks (document_id)`,
		`CREATE INDEX IF NOT EXISTS kb_documents_collection_idx ON kb_documents (collection)`,
		`CREATE INDEX IF NOT EXISTS kb_chunks_embedding_idx
			ON kb_chunks USING ivfflat (embedding vector_l2_ops) WITH (lists = 100)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
