package ingest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/techcoach/careerkb/catalog"
	"github.com/techcoach/careerkb/classify"
	"github.com/techcoach/careerkb/registry"
	"github.com/techcoach/careerkb/vectorstore"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(context.Context, string) (string, error) {
	return s.response, s.err
}

// hashEmbedder produces deterministic bag-of-words vectors so the memory
// vector store behaves without a real embedding service.
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

type fixture struct {
	pipeline *Pipeline
	vectors  *vectorstore.MemoryStore
	catalog  *catalog.MemoryStore
	files    *FileStore
}

func newFixture(t *testing.T, client *stubLLM) *fixture {
	t.Helper()

	reg, err := registry.New()
	require.NoError(t, err)

	logger := log.New(os.Stderr, "", 0)
	files, err := NewFileStore(filepath.Join(t.TempDir(), "documents"), filepath.Join(t.TempDir(), "temp"), logger)
	require.NoError(t, err)

	vectors := vectorstore.NewMemoryStore(hashEmbedder{})
	cat := catalog.NewMemoryStore()
	classifier := classify.New(client, reg, logger)

	return &fixture{
		pipeline: NewPipeline(classifier, vectors, cat, files, reg, 100_000, logger),
		vectors:  vectors,
		catalog:  cat,
		files:    files,
	}
}

func TestIngestFallbackRoutesByFilename(t *testing.T) {
	fx := newFixture(t, &stubLLM{err: fmt.Errorf("model unreachable")})

	text := "Senior backend engineer. Skills: Python, Docker, Kubernetes."
	record, err := fx.pipeline.Ingest(context.Background(), RawDocument{
		RawText:          text,
		OriginalFilename: "张三_简历.txt",
	})
	require.NoError(t, err)

	require.Equal(t, registry.Resumes, record.CollectionKey)
	require.Len(t, record.ChunkIDs, 1)
	require.NotEmpty(t, record.ID)
	require.Equal(t, int64(len(text)), record.FileSizeBytes)

	data, err := os.ReadFile(record.FilePath)
	require.NoError(t, err)
	require.Equal(t, text, string(data))

	stored, err := fx.catalog.Get(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, record.ChunkIDs, stored.ChunkIDs)

	count, err := fx.vectors.Count(context.Background(), registry.Resumes)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestIngestClassifiedDocument(t *testing.T) {
	fx := newFixture(t, &stubLLM{response: `{
		"renamed_filename": "platform_migration_notes",
		"description": "Platform migration notes",
		"abstract": "Notes from migrating the billing platform to Kubernetes.",
		"cleaned_content": "We migrated the billing platform to Kubernetes over two quarters.",
		"collection_type": "projects_experience",
		"metadata": {"technologies": ["Kubernetes", "Go"]},
		"confidence": 0.85,
		"reasoning": "Describes hands-on project work."
	}`})

	record, err := fx.pipeline.Ingest(context.Background(), RawDocument{
		RawText:          "raw upload body, replaced by the cleaned content",
		OriginalFilename: "notes.txt",
	})
	require.NoError(t, err)

	require.Equal(t, registry.ProjectsExperience, record.CollectionKey)
	require.Equal(t, "platform_migration_notes", record.Filename)
	require.Contains(t, record.FilePath, record.ID)

	data, err := os.ReadFile(record.FilePath)
	require.NoError(t, err)
	require.Equal(t, "We migrated the billing platform to Kubernetes over two quarters.", string(data))
}

func TestIngestFromFile(t *testing.T) {
	fx := newFixture(t, &stubLLM{err: fmt.Errorf("model unreachable")})

	upload := filepath.Join(fx.files.TempDir(), "interview_feedback.md")
	require.NoError(t, os.WriteFile(upload, []byte("# Interview feedback\r\nStrong on system design.\r\n"), 0o644))

	record, err := fx.pipeline.Ingest(context.Background(), RawDocument{SourcePath: upload})
	require.NoError(t, err)
	require.Equal(t, registry.Interviews, record.CollectionKey)

	// The transient upload is removed once ingestion finishes.
	_, statErr := os.Stat(upload)
	require.True(t, os.IsNotExist(statErr))
}

func TestIngestRejectsBothPathAndText(t *testing.T) {
	fx := newFixture(t, &stubLLM{})

	_, err := fx.pipeline.Ingest(context.Background(), RawDocument{
		SourcePath: "/tmp/whatever.txt",
		RawText:    "inline text",
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	var stageErr *Error
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageInput, stageErr.Stage)
}

func TestIngestRejectsEmptyInput(t *testing.T) {
	fx := newFixture(t, &stubLLM{})

	_, err := fx.pipeline.Ingest(context.Background(), RawDocument{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = fx.pipeline.Ingest(context.Background(), RawDocument{RawText: "   \n  "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestIngestCatalogFailureCleansUpFile(t *testing.T) {
	fx := newFixture(t, &stubLLM{err: fmt.Errorf("model unreachable")})
	fx.catalog.FailCreate = true

	_, err := fx.pipeline.Ingest(context.Background(), RawDocument{
		RawText:          "a short document",
		OriginalFilename: "note.txt",
	})
	require.Error(t, err)

	var stageErr *Error
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageCatalog, stageErr.Stage)

	// The cleaned document written before the catalog step is rolled back.
	entries, readErr := os.ReadDir(fx.files.documentsDir)
	require.NoError(t, readErr)
	require.Empty(t, entries)

	list, listErr := fx.catalog.List(context.Background())
	require.NoError(t, listErr)
	require.Empty(t, list)
}

func TestMaterializeCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postings.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,company\nBackend Engineer,Acme\nSRE,Globex\n"), 0o644))

	text, err := materializeFile(path)
	require.NoError(t, err)
	require.Contains(t, text, "title: Backend Engineer")
	require.Contains(t, text, "company: Globex")
}

func TestMaterializeUnreadableFile(t *testing.T) {
	_, err := materializeFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "my_resume", sanitizeFilename("my resume.pdf"))
	require.Equal(t, "a-b_c", sanitizeFilename("a-b/c.txt"))
	require.Equal(t, "张三_简历", sanitizeFilename("张三 简历.txt"))
	require.Equal(t, "", sanitizeFilename("..."))
}
