// Package store is the single entry point for the knowledge base: it
// wires ingestion, retrieval, the catalog and the vector store behind one
// façade and keeps their views of the collections consistent.
package store

import (
	"context"
	"fmt"
	"log"

	"github.com/techcoach/careerkb/catalog"
	"github.com/techcoach/careerkb/ingest"
	"github.com/techcoach/careerkb/registry"
	"github.com/techcoach/careerkb/retrieve"
	"github.com/techcoach/careerkb/vectorstore"
)

type DocumentStore struct {
	pipeline *ingest.Pipeline
	engine   *retrieve.Engine
	vectors  vectorstore.Store
	catalog  catalog.Store
	files    *ingest.FileStore
	registry *registry.Registry
	logger   *log.Logger
}

func New(
	pipeline *ingest.Pipeline,
	engine *retrieve.Engine,
	vectors vectorstore.Store,
	cat catalog.Store,
	files *ingest.FileStore,
	reg *registry.Registry,
	logger *log.Logger,
) *DocumentStore {
	if logger == nil {
		logger = log.Default()
	}
	return &DocumentStore{
		pipeline: pipeline,
		engine:   engine,
		vectors:  vectors,
		catalog:  cat,
		files:    files,
		registry: reg,
		logger:   logger,
	}
}

// Start re-derives which collections hold data, so retrieval works
// immediately after a restart.
func (s *DocumentStore) Start(ctx context.Context) error {
	return s.engine.RebuildFromStore(ctx)
}

// Ingest runs one document through the pipeline and marks its collection
// searchable.
func (s *DocumentStore) Ingest(ctx context.Context, doc ingest.RawDocument) (catalog.Record, error) {
	record, err := s.pipeline.Ingest(ctx, doc)
	if err != nil {
		return catalog.Record{}, err
	}
	if err := s.engine.Activate(record.CollectionKey); err != nil {
		// The data is persisted either way; activation only gates search.
		s.logger.Printf("activating %s after ingest failed: %v", record.CollectionKey, err)
	}
	return record, nil
}

// Search fans the query out across the named collections, or across all
// active ones when collectionKeys is empty.
func (s *DocumentStore) Search(ctx context.Context, query string, collectionKeys []string, topK int) ([]retrieve.SearchResult, error) {
	return s.engine.Search(ctx, query, collectionKeys, topK)
}

// BuildContext returns a prompt-ready context block for the query.
func (s *DocumentStore) BuildContext(ctx context.Context, query string, collectionKeys []string, maxTokens int) (string, error) {
	return s.engine.BuildContext(ctx, query, collectionKeys, maxTokens)
}

// ListCollections returns every collection definition.
func (s *DocumentStore) ListCollections() []registry.Definition {
	return s.registry.All()
}

// CollectionInfo returns one collection's current state: its counts,
// activation flag and retrieval tuning.
func (s *DocumentStore) CollectionInfo(ctx context.Context, key string) (CollectionStats, error) {
	def, err := s.registry.Get(key)
	if err != nil {
		return CollectionStats{}, err
	}

	docCounts, err := s.catalog.CountByCollection(ctx)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := s.vectors.Count(ctx, def.Key)
	if err != nil {
		return CollectionStats{}, fmt.Errorf("count chunks in %s: %w", def.Key, err)
	}

	active := false
	for _, k := range s.engine.ActiveCollections() {
		if k == def.Key {
			active = true
			break
		}
	}

	return CollectionStats{
		Key:            def.Key,
		DisplayName:    def.DisplayName,
		Documents:      docCounts[def.Key],
		Chunks:         chunks,
		Active:         active,
		ChunkSize:      def.ChunkSize,
		SimilarityTopK: def.SimilarityTopK,
	}, nil
}

// ListDocuments returns catalog records, optionally filtered to one
// collection.
func (s *DocumentStore) ListDocuments(ctx context.Context, collectionKey string) ([]catalog.Record, error) {
	if collectionKey == "" {
		return s.catalog.List(ctx)
	}
	if !s.registry.Has(collectionKey) {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownCollection, collectionKey)
	}
	return s.catalog.ListByCollection(ctx, collectionKey)
}

// DeleteDocument removes a document's catalog record and its cleaned
// file. Its chunks stay in the vector store until the collection is
// reset; that window is logged, not hidden.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	record, err := s.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.catalog.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete catalog record: %w", err)
	}
	if err := s.files.Delete(record.FilePath); err != nil {
		s.logger.Printf("deleting file for %s failed: %v", id, err)
	}
	if len(record.ChunkIDs) > 0 {
		s.logger.Printf("document %s deleted; %d chunks remain in %s until the collection is reset",
			id, len(record.ChunkIDs), record.CollectionKey)
	}
	return nil
}

// CollectionStats describes one collection's current state.
type CollectionStats struct {
	Key            string
	DisplayName    string
	Documents      int
	Chunks         int
	Active         bool
	ChunkSize      int
	SimilarityTopK int
}

// Stats reports per-collection document and chunk counts in registry
// order, plus overall totals.
type Stats struct {
	Collections    []CollectionStats
	TotalDocuments int
	TotalChunks    int
}

func (s *DocumentStore) Stats(ctx context.Context) (Stats, error) {
	docCounts, err := s.catalog.CountByCollection(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}

	active := make(map[string]bool)
	for _, key := range s.engine.ActiveCollections() {
		active[key] = true
	}

	stats := Stats{}
	for _, def := range s.registry.All() {
		chunks, err := s.vectors.Count(ctx, def.Key)
		if err != nil {
			return Stats{}, fmt.Errorf("count chunks in %s: %w", def.Key, err)
		}
		cs := CollectionStats{
			Key:            def.Key,
			DisplayName:    def.DisplayName,
			Documents:      docCounts[def.Key],
			Chunks:         chunks,
			Active:         active[def.Key],
			ChunkSize:      def.ChunkSize,
			SimilarityTopK: def.SimilarityTopK,
		}
		stats.Collections = append(stats.Collections, cs)
		stats.TotalDocuments += cs.Documents
		stats.TotalChunks += cs.Chunks
	}
	return stats, nil
}

// ResetCollection empties one collection: vectors, catalog records and
// cleaned files all go, and the collection is recreated empty and marked
// inactive.
func (s *DocumentStore) ResetCollection(ctx context.Context, key string) error {
	def, err := s.registry.Get(key)
	if err != nil {
		return err
	}
	return s.reset(ctx, def)
}

// ResetAll resets every collection.
func (s *DocumentStore) ResetAll(ctx context.Context) error {
	for _, def := range s.registry.All() {
		if err := s.reset(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentStore) reset(ctx context.Context, def registry.Definition) error {
	records, err := s.catalog.ListByCollection(ctx, def.Key)
	if err != nil {
		return fmt.Errorf("list documents in %s: %w", def.Key, err)
	}

	if _, err := s.vectors.DeleteCollection(ctx, def.Key); err != nil {
		return fmt.Errorf("delete collection %s: %w", def.Key, err)
	}
	s.engine.Deactivate(def.Key)

	if _, err := s.catalog.DeleteByCollection(ctx, def.Key); err != nil {
		return fmt.Errorf("delete catalog records for %s: %w", def.Key, err)
	}
	for _, record := range records {
		if err := s.files.Delete(record.FilePath); err != nil {
			s.logger.Printf("deleting file %s during reset failed: %v", record.FilePath, err)
		}
	}

	if err := s.vectors.EnsureCollection(ctx, def.Key, def.Tags); err != nil {
		return fmt.Errorf("recreate collection %s: %w", def.Key, err)
	}

	s.logger.Printf("collection %s reset (%d documents removed)", def.Key, len(records))
	return nil
}

// IsReady reports whether the vector store is reachable and at least one
// collection holds data.
func (s *DocumentStore) IsReady(ctx context.Context) bool {
	return s.vectors.Healthy(ctx) && len(s.engine.ActiveCollections()) > 0
}
