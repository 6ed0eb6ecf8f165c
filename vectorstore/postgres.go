package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/techcoach/careerkb/embeddings"
)

// PostgresStore keeps chunks in a single pgvector-backed table keyed by
// collection name. Embedding happens inside the store so callers hand over
// plain text on both the write and the query path.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	logger   *log.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, embedder embeddings.Embedder, logger *log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.Default()
	}
	return &PostgresStore{pool: pool, embedder: embedder, logger: logger}
}

func (s *PostgresStore) EnsureCollection(ctx context.Context, name string, metadata map[string]string) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal collection metadata: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO kb_collections (name, metadata, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO NOTHING
	`, name, meta); err != nil {
		return fmt.Errorf("ensure collection %q: %w (%w)", name, err, ErrUnavailable)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection string, chunks []Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to upsert")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w (%w)", err, ErrUnavailable)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
				s.logger.Printf("rollback error: %v", rbErr)
			}
		}
	}()

	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		meta, marshalErr := json.Marshal(chunk.Metadata)
		if marshalErr != nil {
			err = fmt.Errorf("marshal chunk metadata: %w", marshalErr)
			return nil, err
		}

		chunkID := uuid.New()
		if _, err = tx.Exec(ctx, `
			INSERT INTO kb_chunks (id, collection, document_id, position, content, metadata, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`, chunkID, collection, chunk.DocumentID, chunk.Position, chunk.Text, meta, pgvector.NewVector(vectors[i])); err != nil {
			err = fmt.Errorf("insert chunk %d: %w", i, err)
			return nil, err
		}
		ids = append(ids, chunkID.String())
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit chunks: %w", err)
	}

	return ids, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection, queryText string, topK int) ([]Result, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
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

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w (%w)", err, ErrUnavailable)
	}
	defer conn.Release()

	probes := topK * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, content, metadata, (embedding <-> $1::vector) AS distance
		FROM kb_chunks
		WHERE collection = $2
		ORDER BY embedding <-> $1::vector
		LIMIT $3
	`, pgvector.NewVector(vectors[0]), collection, topK)
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", collection, err)
	}
	defer rows.Close()

	results := make([]Result, 0, topK)
	for rows.Next() {
		var (
			id       uuid.UUID
			content  string
			meta     []byte
			distance float64
		)
		if err := rows.Scan(&id, &content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		var metadata map[string]any
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}

		results = append(results, Result{
			ChunkID:  id.String(),
			Text:     content,
			Score:    1 / (1 + distance),
			Metadata: metadata,
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresStore) DeleteCollection(ctx context.Context, name string) (bool, error) {
	if _, err := s.pool.Exec(ctx, "DELETE FROM kb_chunks WHERE collection = $1", name); err != nil {
		return false, fmt.Errorf("delete chunks for %q: %w (%w)", name, err, ErrUnavailable)
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM kb_collections WHERE name = $1", name)
	if err != nil {
		return false, fmt.Errorf("delete collection %q: %w", name, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Count(ctx context.Context, collection string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM kb_chunks WHERE collection = $1", collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks for %q: %w (%w)", collection, err, ErrUnavailable)
	}
	return count, nil
}

func (s *PostgresStore) Healthy(ctx context.Context) bool {
	if s.pool == nil {
		return false
	}
	return s.pool.Ping(ctx) == nil
}

var _ Store = (*PostgresStore)(nil)
