package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Format enumerates supported upload formats.
type Format string

const (
	FormatUnknown   Format = ""
	FormatPlainText Format = "text"
	FormatMarkdown  Format = "markdown"
	FormatPDF       Format = "pdf"
	FormatCSV       Format = "csv"
)

// DetectFormat infers a format from the path's extension. Unknown
// extensions are treated as plain text rather than rejected; the
// classifier sees the bytes either way.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".pdf":
		return FormatPDF
	case ".csv":
		return FormatCSV
	case ".txt":
		return FormatPlainText
	default:
		return FormatUnknown
	}
}

// materializeFile reads the file and extracts plain text according to its
// format.
func materializeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	switch DetectFormat(path) {
	case FormatPDF:
		return extractPDF(data)
	case FormatCSV:
		return extractCSV(data)
	default:
		return normalizeText(string(data)), nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return normalizeText(buf.String()), nil
}

// extractCSV renders rows as "Header: value" lines so the classifier and
// chunker see prose-like text instead of raw commas.
func extractCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	headers := records[0]
	builder := &strings.Builder{}
	for idx, row := range records[1:] {
		if idx > 0 {
			builder.WriteString("\n\n")
		}
		fmt.Fprintf(builder, "Row %d", idx+1)
		for i, value := range row {
			header := fmt.Sprintf("Column %d", i+1)
			if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
				header = strings.TrimSpace(headers[i])
			}
			fmt.Fprintf(builder, "\n%s: %s", header, strings.TrimSpace(value))
		}
	}
	return builder.String(), nil
}

func normalizeText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
