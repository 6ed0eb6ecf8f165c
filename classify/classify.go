// Package classify assigns an incoming document to a collection and
// produces its cleaned text and metadata. One language-model attempt with
// strict output validation; on any failure a deterministic filename
// heuristic takes over, so classification always terminates.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/techcoach/careerkb/llm"
	"github.com/techcoach/careerkb/registry"
)

const (
	// maxPromptChars bounds how much document text goes into the prompt.
	maxPromptChars = 4000

	// fallbackConfidence marks results produced by the filename heuristic.
	fallbackConfidence = 0.3

	maxDescriptionLen = 30
	maxAbstractLen    = 100
)

// Result is the outcome of classifying and preprocessing one document.
// Degraded is set when the heuristic fallback produced it; callers that
// care about quality should inspect Confidence.
type Result struct {
	CollectionKey   string
	RenamedFilename string
	Description     string
	Abstract        string
	CleanedText     string
	Metadata        map[string]any
	Confidence      float64
	Reasoning       string
	Degraded        bool
}

type Classifier struct {
	llm      llm.Client
	registry *registry.Registry
	logger   *log.Logger
	now      func() time.Time
}

func New(client llm.Client, reg *registry.Registry, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{
		llm:      client,
		registry: reg,
		logger:   logger,
		now:      time.Now,
	}
}

// ClassifyAndPreprocess runs the single LLM attempt and falls back to the
// heuristic on any failure. It never returns an error: the pipeline must
// not stall because the model is unreachable or returned garbage.
func (c *Classifier) ClassifyAndPreprocess(ctx context.Context, text, filename string) Result {
	if c.llm == nil {
		return c.fallback(text, filename, "no language model configured")
	}

	prompt := buildPrompt(truncateRunes(text, maxPromptChars), filename)

	response, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		c.logger.Printf("classification llm call failed: %v", err)
		return c.fallback(text, filename, fmt.Sprintf("llm call failed: %v", err))
	}

	parsed, err := decodeResponse(response)
	if err != nil {
		c.logger.Printf("classification response rejected: %v", err)
		return c.fallback(text, filename, fmt.Sprintf("invalid llm output: %v", err))
	}

	if !c.registry.Has(parsed.CollectionType) {
		c.logger.Printf("classification returned unknown collection %q", parsed.CollectionType)
		return c.fallback(text, filename, fmt.Sprintf("llm chose unknown collection %q", parsed.CollectionType))
	}

	confidence := 0.9
	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 1 {
		confidence = *parsed.Confidence
	}

	result := Result{
		CollectionKey:   parsed.CollectionType,
		RenamedFilename: strings.TrimSpace(parsed.RenamedFilename),
		Description:     truncateRunes(parsed.Description, maxDescriptionLen),
		Abstract:        truncateRunes(parsed.Abstract, maxAbstractLen),
		CleanedText:     parsed.CleanedContent,
		Metadata:        TruncateMetadata(parsed.Metadata),
		Confidence:      confidence,
		Reasoning:       parsed.Reasoning,
	}
	if result.RenamedFilename == "" {
		result.RenamedFilename = c.defaultFilename(filename)
	}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}

	c.logger.Printf("document classified into %s (confidence %.2f)", result.CollectionKey, result.Confidence)
	return result
}

// llmResponse is the exact shape the model is instructed to return.
type llmResponse struct {
	RenamedFilename string         `json:"renamed_filename"`
	Description     string         `json:"description"`
	Abstract        string         `json:"abstract"`
	CleanedContent  string         `json:"cleaned_content"`
	CollectionType  string         `json:"collection_type"`
	Metadata        map[string]any `json:"metadata"`
	Confidence      *float64       `json:"confidence"`
	Reasoning       string         `json:"reasoning"`
}

// decodeResponse extracts the JSON object from the raw completion
// (tolerating leading and trailing prose) and decodes it into the typed
// shape. It yields either a fully populated response or an error; a
// partially filled object never escapes.
func decodeResponse(raw string) (llmResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return llmResponse{}, fmt.Errorf("no JSON object in response")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return llmResponse{}, fmt.Errorf("parse response JSON: %w", err)
	}

	missing := make([]string, 0)
	for field, value := range map[string]string{
		"renamed_filename": parsed.RenamedFilename,
		"description":      parsed.Description,
		"abstract":         parsed.Abstract,
		"cleaned_content":  parsed.CleanedContent,
		"collection_type":  parsed.CollectionType,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return llmResponse{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	return parsed, nil
}

func (c *Classifier) defaultFilename(filename string) string {
	if strings.TrimSpace(filename) != "" {
		return filename
	}
	return "document_" + c.now().Format("20060102_150405")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
