package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/techcoach/careerkb/catalog"
	"github.com/techcoach/careerkb/classify"
	"github.com/techcoach/careerkb/ingest"
	"github.com/techcoach/careerkb/registry"
	"github.com/techcoach/careerkb/retrieve"
	"github.com/techcoach/careerkb/vectorstore"
)

type failingLLM struct{}

func (failingLLM) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("model unreachable")
}

type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 64)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%64]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func newStore(t *testing.T) *DocumentStore {
	t.Helper()

	reg, err := registry.New()
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	files, err := ingest.NewFileStore(filepath.Join(t.TempDir(), "documents"), filepath.Join(t.TempDir(), "temp"), logger)
	require.NoError(t, err)

	vectors := vectorstore.NewMemoryStore(hashEmbedder{})
	cat := catalog.NewMemoryStore()
	classifier := classify.New(failingLLM{}, reg, logger)
	pipeline := ingest.NewPipeline(classifier, vectors, cat, files, reg, 0, logger)
	engine := retrieve.NewEngine(vectors, reg, logger)

	store := New(pipeline, engine, vectors, cat, files, reg, logger)
	require.NoError(t, store.Start(context.Background()))
	return store
}

func mustIngest(t *testing.T, store *DocumentStore, filename, text string) catalog.Record {
	t.Helper()
	record, err := store.Ingest(context.Background(), ingest.RawDocument{
		RawText:          text,
		OriginalFilename: filename,
	})
	require.NoError(t, err)
	return record
}

func TestIngestThenSearchRoundTrip(t *testing.T) {
	store := newStore(t)

	mustIngest(t, store, "my_resume.txt", "Backend engineer with Python and Docker experience.")
	mustIngest(t, store, "backend_job_posting.txt", "Hiring a platform engineer, Kubernetes required.")

	results, err := store.Search(context.Background(), "Python Docker experience", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, registry.Resumes, results[0].CollectionKey)
	require.Contains(t, results[0].Text, "Python")

	scoped, err := store.Search(context.Background(), "Python Docker experience", []string{registry.Resumes}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, scoped)
	for _, result := range scoped {
		require.Equal(t, registry.Resumes, result.CollectionKey)
	}
}

func TestStatsCountsPerCollection(t *testing.T) {
	store := newStore(t)

	mustIngest(t, store, "my_resume.txt", "Backend engineer with Python experience.")
	mustIngest(t, store, "second_resume.txt", "Data engineer resume with Spark experience.")
	mustIngest(t, store, "backend_job_posting.txt", "Hiring a platform engineer.")

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalDocuments)
	require.Len(t, stats.Collections, 7)

	byKey := make(map[string]CollectionStats)
	for _, cs := range stats.Collections {
		byKey[cs.Key] = cs
	}
	require.Equal(t, 2, byKey[registry.Resumes].Documents)
	require.True(t, byKey[registry.Resumes].Active)
	require.Equal(t, 1, byKey[registry.JobPostings].Documents)
	require.False(t, byKey[registry.CodeAnalysis].Active)
	require.Zero(t, byKey[registry.CodeAnalysis].Documents)
}

func TestResetCollectionClearsOnlyThatCollection(t *testing.T) {
	store := newStore(t)

	mustIngest(t, store, "my_resume.txt", "Backend engineer with Python experience.")
	posting := mustIngest(t, store, "backend_job_posting.txt", "Hiring a platform engineer.")

	require.NoError(t, store.ResetCollection(context.Background(), registry.JobPostings))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	byKey := make(map[string]CollectionStats)
	for _, cs := range stats.Collections {
		byKey[cs.Key] = cs
	}
	require.Zero(t, byKey[registry.JobPostings].Documents)
	require.Zero(t, byKey[registry.JobPostings].Chunks)
	require.False(t, byKey[registry.JobPostings].Active)
	require.Equal(t, 1, byKey[registry.Resumes].Documents)
	require.True(t, byKey[registry.Resumes].Active)

	// The posting's cleaned file is gone with it.
	_, statErr := os.Stat(posting.FilePath)
	require.True(t, os.IsNotExist(statErr))

	_, err = store.ListDocuments(context.Background(), registry.JobPostings)
	require.NoError(t, err)
}

func TestCollectionInfo(t *testing.T) {
	store := newStore(t)
	mustIngest(t, store, "my_resume.txt", "Backend engineer with Python experience.")

	info, err := store.CollectionInfo(context.Background(), registry.Resumes)
	require.NoError(t, err)
	require.Equal(t, 1, info.Documents)
	require.Equal(t, 1, info.Chunks)
	require.True(t, info.Active)
	require.Equal(t, 196, info.ChunkSize)

	_, err = store.CollectionInfo(context.Background(), "nonsense")
	require.ErrorIs(t, err, registry.ErrUnknownCollection)
}

func TestResetUnknownCollection(t *testing.T) {
	store := newStore(t)
	err := store.ResetCollection(context.Background(), "nonsense")
	require.ErrorIs(t, err, registry.ErrUnknownCollection)
}

func TestDeleteDocument(t *testing.T) {
	store := newStore(t)

	record := mustIngest(t, store, "my_resume.txt", "Backend engineer with Python experience.")
	require.NoError(t, store.DeleteDocument(context.Background(), record.ID))

	_, err := store.ListDocuments(context.Background(), "")
	require.NoError(t, err)

	list, err := store.ListDocuments(context.Background(), registry.Resumes)
	require.NoError(t, err)
	require.Empty(t, list)

	_, statErr := os.Stat(record.FilePath)
	require.True(t, os.IsNotExist(statErr))

	err = store.DeleteDocument(context.Background(), record.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestIsReady(t *testing.T) {
	store := newStore(t)
	require.False(t, store.IsReady(context.Background()))

	mustIngest(t, store, "my_resume.txt", "Backend engineer with Python experience.")
	require.True(t, store.IsReady(context.Background()))
}

func TestStartRebuildsActiveSet(t *testing.T) {
	store := newStore(t)
	mustIngest(t, store, "my_resume.txt", "Backend engineer with Python experience.")

	fresh := New(store.pipeline, retrieve.NewEngine(store.vectors, store.registry, log.New(io.Discard, "", 0)),
		store.vectors, store.catalog, store.files, store.registry, log.New(io.Discard, "", 0))
	require.False(t, fresh.IsReady(context.Background()))

	require.NoError(t, fresh.Start(context.Background()))
	require.True(t, fresh.IsReady(context.Background()))
}
