package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore backs tests and local runs without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record

	// FailCreate forces the next Create to fail; used to exercise the
	// ingestion rollback path.
	FailCreate bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate {
		return fmt.Errorf("catalog write refused")
	}
	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("duplicate document id %s", record.ID)
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(Record) bool { return true }), nil
}

func (s *MemoryStore) ListByCollection(_ context.Context, collectionKey string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r Record) bool { return r.CollectionKey == collectionKey }), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	delete(s.records, id)
	return ok, nil
}

func (s *MemoryStore) DeleteByCollection(_ context.Context, collectionKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, record := range s.records {
		if record.CollectionKey == collectionKey {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

func (s *MemoryStore) CountByCollection(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, record := range s.records {
		counts[record.CollectionKey]++
	}
	return counts, nil
}

func (s *MemoryStore) sorted(keep func(Record) bool) []Record {
	out := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		if keep(record) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

var _ Store = (*MemoryStore)(nil)
