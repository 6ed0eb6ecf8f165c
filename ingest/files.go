package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// FileStore persists cleaned document text under the documents directory
// and owns cleanup of transient uploads in the temp directory.
type FileStore struct {
	documentsDir string
	tempDir      string
	logger       *log.Logger
}

func NewFileStore(documentsDir, tempDir string, logger *log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	for _, dir := range []string{documentsDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &FileStore{documentsDir: documentsDir, tempDir: tempDir, logger: logger}, nil
}

// SaveCleaned writes the cleaned text under the classifier-chosen name,
// prefixed with the document id so renamed filenames can never collide.
func (f *FileStore) SaveCleaned(docID, filename, text string) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		name = "document"
	}
	path := filepath.Join(f.documentsDir, docID+"_"+name+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write cleaned document: %w", err)
	}
	return path, nil
}

func (f *FileStore) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

func (f *FileStore) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete document file: %w", err)
	}
	return nil
}

// CleanupTemp removes a transient upload, but only if it actually lives
// under the temp directory; caller-owned files elsewhere are left alone.
func (f *FileStore) CleanupTemp(path string) {
	absTemp, err := filepath.Abs(f.tempDir)
	if err != nil {
		return
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(absTemp, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		f.logger.Printf("temp cleanup of %s failed: %v", path, err)
	}
}

// TempDir exposes where transient uploads belong.
func (f *FileStore) TempDir() string { return f.tempDir }

// sanitizeFilename keeps letters, digits, dashes, underscores and dots;
// everything else (including path separators) becomes an underscore.
func sanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))

	var builder strings.Builder
	for _, r := range filename {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "._")
}

func baseName(path string) string {
	return filepath.Base(path)
}
