// Package ingest runs one document end to end: materialize, classify,
// persist, chunk, vectorize, catalog. Each step is a hard dependency on
// the previous one succeeding.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/techcoach/careerkb/catalog"
	"github.com/techcoach/careerkb/chunker"
	"github.com/techcoach/careerkb/classify"
	"github.com/techcoach/careerkb/registry"
	"github.com/techcoach/careerkb/vectorstore"
)

// ErrInvalidInput covers bad ingestion input: neither or both of path and
// text given, or empty extracted text.
var ErrInvalidInput = errors.New("invalid ingestion input")

// Stage identifies where in the pipeline a failure happened.
type Stage string

const (
	StageInput       Stage = "input"
	StageClassify    Stage = "classify"
	StagePersistFile Stage = "persist_file"
	StageChunk       Stage = "chunk"
	StageVectorize   Stage = "vectorize"
	StageCatalog     Stage = "catalog"
)

// Error wraps a stage failure with enough context to know what was and
// wasn't persisted.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("ingestion failed at stage %s: %v", e.Stage, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error { return &Error{Stage: stage, Err: err} }

// RawDocument is the transient ingestion input. Exactly one of SourcePath
// and RawText must be set.
type RawDocument struct {
	SourcePath       string
	RawText          string
	OriginalFilename string
}

type Pipeline struct {
	classifier *classify.Classifier
	vectors    vectorstore.Store
	catalog    catalog.Store
	files      *FileStore
	registry   *registry.Registry
	logger     *log.Logger

	// maxChars is a soft ceiling; oversize documents are logged, not
	// rejected.
	maxChars int
}

func NewPipeline(
	classifier *classify.Classifier,
	vectors vectorstore.Store,
	cat catalog.Store,
	files *FileStore,
	reg *registry.Registry,
	maxChars int,
	logger *log.Logger,
) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		classifier: classifier,
		vectors:    vectors,
		catalog:    cat,
		files:      files,
		registry:   reg,
		logger:     logger,
		maxChars:   maxChars,
	}
}

// Ingest runs the full pipeline for one document and returns its catalog
// record. Failures carry the stage they happened in.
func (p *Pipeline) Ingest(ctx context.Context, doc RawDocument) (catalog.Record, error) {
	text, filename, err := p.materialize(doc)
	if err != nil {
		return catalog.Record{}, stageErr(StageInput, err)
	}

	// Raw uploads under the temp directory are transient; remove them
	// whether or not ingestion succeeds.
	if doc.SourcePath != "" {
		defer p.files.CleanupTemp(doc.SourcePath)
	}

	if p.maxChars > 0 && len(text) > p.maxChars {
		p.logger.Printf("document exceeds soft limit (%d > %d chars), ingesting anyway", len(text), p.maxChars)
	}

	// Classification cannot fail: the classifier falls back to a filename
	// heuristic when the model is unreachable or returned garbage.
	classification := p.classifier.ClassifyAndPreprocess(ctx, text, filename)
	if classification.Degraded {
		p.logger.Printf("classification degraded for %q (confidence %.2f)", filename, classification.Confidence)
	}

	def, err := p.registry.Get(classification.CollectionKey)
	if err != nil {
		// Should not occur post-validation; checked defensively anyway.
		return catalog.Record{}, stageErr(StageClassify, err)
	}

	cleaned := classification.CleanedText
	if strings.TrimSpace(cleaned) == "" {
		cleaned = text
	}

	docID := uuid.New().String()

	filePath, err := p.files.SaveCleaned(docID, classification.RenamedFilename, cleaned)
	if err != nil {
		return catalog.Record{}, stageErr(StagePersistFile, err)
	}

	chunks := chunker.Split(cleaned, chunker.Policy{Size: def.ChunkSize, Overlap: def.ChunkOverlap})
	if len(chunks) == 0 {
		p.removeFile(filePath)
		return catalog.Record{}, stageErr(StageChunk, fmt.Errorf("document produced no chunks: %w", ErrInvalidInput))
	}

	if err := p.vectors.EnsureCollection(ctx, def.Key, def.Tags); err != nil {
		p.removeFile(filePath)
		return catalog.Record{}, stageErr(StageVectorize, err)
	}

	chunkIDs, err := p.vectors.Upsert(ctx, def.Key, buildChunks(docID, classification, chunks))
	if err != nil {
		p.removeFile(filePath)
		return catalog.Record{}, stageErr(StageVectorize, err)
	}

	record := catalog.Record{
		ID:            docID,
		Filename:      classification.RenamedFilename,
		FilePath:      filePath,
		CollectionKey: def.Key,
		ChunkIDs:      chunkIDs,
		FileSizeBytes: int64(len(cleaned)),
		Description:   classification.Description,
		Abstract:      classification.Abstract,
	}

	if err := p.catalog.Create(ctx, record); err != nil {
		// Chunks already upserted stay behind, orphaned from the catalog;
		// an accepted inconsistency window that is logged, not hidden.
		p.removeFile(filePath)
		p.logger.Printf("catalog write failed after vector upsert; %d chunks in %s are orphaned", len(chunkIDs), def.Key)
		return catalog.Record{}, stageErr(StageCatalog, err)
	}

	p.logger.Printf("ingested %q into %s (%d chunks)", record.Filename, def.Key, len(chunkIDs))
	return record, nil
}

func (p *Pipeline) materialize(doc RawDocument) (text, filename string, err error) {
	hasPath := strings.TrimSpace(doc.SourcePath) != ""
	hasText := strings.TrimSpace(doc.RawText) != ""

	switch {
	case hasPath && hasText:
		return "", "", fmt.Errorf("%w: provide either a source path or raw text, not both", ErrInvalidInput)
	case hasPath:
		text, err = materializeFile(doc.SourcePath)
		if err != nil {
			return "", "", err
		}
		filename = doc.OriginalFilename
		if filename == "" {
			filename = baseName(doc.SourcePath)
		}
	case hasText:
		text = doc.RawText
		filename = doc.OriginalFilename
	default:
		return "", "", fmt.Errorf("%w: neither source path nor raw text given", ErrInvalidInput)
	}

	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%w: document text is empty", ErrInvalidInput)
	}
	return text, filename, nil
}

// buildChunks attaches the document metadata plus chunk-local fields to
// every chunk headed for the vector store.
func buildChunks(docID string, classification classify.Result, texts []string) []vectorstore.Chunk {
	// Classification metadata is already truncated; only the chunk-local
	// fields are added on top, and document_id must never be cut short.
	chunks := make([]vectorstore.Chunk, 0, len(texts))
	for i, text := range texts {
		metadata := make(map[string]any, len(classification.Metadata)+4)
		for k, v := range classification.Metadata {
			metadata[k] = v
		}
		metadata["document_id"] = docID
		metadata["source_file"] = classification.RenamedFilename
		metadata["position"] = i
		metadata["classification_confidence"] = classification.Confidence

		chunks = append(chunks, vectorstore.Chunk{
			DocumentID: docID,
			Position:   i,
			Text:       text,
			Metadata:   metadata,
		})
	}
	return chunks
}

// removeFile is compensating cleanup; its own failure is logged, never
// re-raised, so the original error stays visible.
func (p *Pipeline) removeFile(path string) {
	if err := p.files.Delete(path); err != nil {
		p.logger.Printf("cleanup of %s failed: %v", path, err)
	}
}
