package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, record Record) error {
	chunkIDs, err := json.Marshal(record.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshal chunk ids: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO kb_documents (id, filename, file_path, collection, chunk_ids, file_size, description, abstract, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, record.ID, record.Filename, record.FilePath, record.CollectionKey, chunkIDs,
		record.FileSizeBytes, record.Description, record.Abstract); err != nil {
		return fmt.Errorf("insert document record: %w", err)
	}
	return nil
}

const recordColumns = `id, filename, file_path, collection, chunk_ids, file_size, description, abstract, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+recordColumns+" FROM kb_documents WHERE id = $1", id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, fmt.Errorf("query document record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	return s.listWhere(ctx, "SELECT "+recordColumns+" FROM kb_documents ORDER BY created_at")
}

func (s *PostgresStore) ListByCollection(ctx context.Context, collectionKey string) ([]Record, error) {
	return s.listWhere(ctx, "SELECT "+recordColumns+" FROM kb_documents WHERE collection = $1 ORDER BY created_at", collectionKey)
}

func (s *PostgresStore) listWhere(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list document records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM kb_documents WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete document record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteByCollection(ctx context.Context, collectionKey string) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM kb_documents WHERE collection = $1", collectionKey)
	if err != nil {
		return 0, fmt.Errorf("delete document records for %q: %w", collectionKey, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM kb_documents"); err != nil {
		return fmt.Errorf("delete all document records: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountByCollection(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, "SELECT collection, COUNT(*) FROM kb_documents GROUP BY collection")
	if err != nil {
		return nil, fmt.Errorf("count document records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		record   Record
		chunkIDs []byte
	)
	if err := row.Scan(&record.ID, &record.Filename, &record.FilePath, &record.CollectionKey,
		&chunkIDs, &record.FileSizeBytes, &record.Description, &record.Abstract,
		&record.CreatedAt, &record.UpdatedAt); err != nil {
		return Record{}, err
	}
	if len(chunkIDs) > 0 {
		if err := json.Unmarshal(chunkIDs, &record.ChunkIDs); err != nil {
			return Record{}, fmt.Errorf("unmarshal chunk ids: %w", err)
		}
	}
	return record, nil
}

var _ Store = (*PostgresStore)(nil)
