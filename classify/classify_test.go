package classify

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcoach/careerkb/llm"
	"github.com/techcoach/careerkb/registry"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var _ llm.Client = (*stubLLM)(nil)

func newClassifier(t *testing.T, client llm.Client) *Classifier {
	t.Helper()
	reg, err := registry.New()
	require.NoError(t, err)
	return New(client, reg, log.New(io.Discard, "", 0))
}

const validResponse = `{
	"renamed_filename": "backend_engineer_resume",
	"description": "Senior backend engineer resume",
	"abstract": "Five years of Go and Python backend work with container experience.",
	"cleaned_content": "Backend engineer. Go, Python, Docker.",
	"collection_type": "resumes",
	"metadata": {"target_job": "backend", "language": "en", "last_updated": "2026-08-01"},
	"confidence": 0.92,
	"reasoning": "Work history and skills sections indicate a resume."
}`

func TestClassifyValidResponse(t *testing.T) {
	c := newClassifier(t, &stubLLM{response: validResponse})

	result := c.ClassifyAndPreprocess(context.Background(), "Backend engineer. Go, Python, Docker.", "resume.txt")

	assert.Equal(t, registry.Resumes, result.CollectionKey)
	assert.Equal(t, "backend_engineer_resume", result.RenamedFilename)
	assert.Equal(t, "Backend engineer. Go, Python, Docker.", result.CleanedText)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.False(t, result.Degraded)
	assert.Equal(t, "backend", result.Metadata["target_job"])
}

func TestClassifyToleratesSurroundingProse(t *testing.T) {
	c := newClassifier(t, &stubLLM{response: "Sure, here is the JSON:\n" + validResponse + "\nHope that helps!"})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "resume.txt")

	assert.Equal(t, registry.Resumes, result.CollectionKey)
	assert.False(t, result.Degraded)
}

func TestClassifyFallbackOnLLMError(t *testing.T) {
	c := newClassifier(t, &stubLLM{err: errors.New("connection refused")})

	result := c.ClassifyAndPreprocess(context.Background(), "一段简历内容", "张三_简历.txt")

	assert.Equal(t, registry.Resumes, result.CollectionKey)
	assert.LessOrEqual(t, result.Confidence, 0.3)
	assert.True(t, result.Degraded)
	assert.Equal(t, "一段简历内容", result.CleanedText, "fallback must keep the original text")
}

func TestClassifyFallbackOnMalformedJSON(t *testing.T) {
	c := newClassifier(t, &stubLLM{response: "{not valid json"})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "my_cv.pdf")

	assert.Equal(t, registry.Resumes, result.CollectionKey)
	assert.True(t, result.Degraded)
}

func TestClassifyFallbackOnMissingFields(t *testing.T) {
	c := newClassifier(t, &stubLLM{response: `{"collection_type": "resumes"}`})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "notes_on_jd_posting.txt")

	assert.Equal(t, registry.JobPostings, result.CollectionKey)
	assert.True(t, result.Degraded)
}

func TestClassifyFallbackOnUnknownCollection(t *testing.T) {
	response := strings.Replace(validResponse, `"resumes"`, `"shopping_lists"`, 1)
	c := newClassifier(t, &stubLLM{response: response})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "")

	assert.Equal(t, registry.FallbackKey, result.CollectionKey)
	assert.True(t, result.Degraded)
}

func TestClassifyFallbackDefaultsToProjects(t *testing.T) {
	c := newClassifier(t, &stubLLM{err: errors.New("timeout")})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "random_notes.txt")

	assert.Equal(t, registry.ProjectsExperience, result.CollectionKey)
}

func TestClassifyGeneratesFilenameWhenMissing(t *testing.T) {
	c := newClassifier(t, &stubLLM{err: errors.New("down")})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "")

	assert.True(t, strings.HasPrefix(result.RenamedFilename, "document_"), result.RenamedFilename)
}

func TestTruncateMetadataCapsStrings(t *testing.T) {
	long := strings.Repeat("a", 80)
	out := TruncateMetadata(map[string]any{"field": long})

	assert.Len(t, out["field"].(string), 30)
}

func TestTruncateMetadataCapsLists(t *testing.T) {
	items := make([]any, 9)
	for i := range items {
		items[i] = strings.Repeat("x", 50)
	}
	out := TruncateMetadata(map[string]any{"tags": items})

	capped := out["tags"].([]any)
	require.Len(t, capped, 5)
	for _, item := range capped {
		assert.Len(t, item.(string), 20)
	}
}

func TestTruncateMetadataKeepsScalars(t *testing.T) {
	out := TruncateMetadata(map[string]any{"count": 7, "flag": true})

	assert.Equal(t, 7, out["count"])
	assert.Equal(t, true, out["flag"])
}

func TestDescriptionAndAbstractCaps(t *testing.T) {
	response := strings.Replace(validResponse,
		"Senior backend engineer resume",
		strings.Repeat("d", 200), 1)
	response = strings.Replace(response,
		"Five years of Go and Python backend work with container experience.",
		strings.Repeat("a", 300), 1)
	c := newClassifier(t, &stubLLM{response: response})

	result := c.ClassifyAndPreprocess(context.Background(), "text", "resume.txt")

	assert.LessOrEqual(t, len([]rune(result.Description)), 30)
	assert.LessOrEqual(t, len([]rune(result.Abstract)), 100)
}
