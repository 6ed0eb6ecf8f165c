package classify

import (
	"fmt"
	"strings"
)

// The collection list in the prompt must track the registry keys; it is
// spelled out literally so the model sees descriptions, not Go values.
const promptTemplate = `You are a document preprocessing expert for a career knowledge base.
Process the document below and return a single JSON object.

Available collection types:
1. resumes - personal resumes and CVs
2. projects_experience - project and work experience write-ups
3. job_postings - job descriptions and postings
4. interviews - interview records and feedback
5. interview_qna_bank - interview question banks
6. code_analysis - code analysis reports
7. industry_trends - industry and technology trend reports

Document content:
%s

Original filename: %s

Tasks:
1. renamed_filename: a meaningful filename derived from the content (no special characters).
2. description: a brief description, at most 30 characters.
3. abstract: a concise summary of the whole document, at most 100 characters.
4. cleaned_content: the document text with broken line wrapping and useless formatting removed; insert "\n---\n" between weakly related sections.
5. collection_type: one of the collection types listed above.
6. metadata: a flat object of scalar fields relevant to the chosen collection.
7. confidence: your confidence in the classification, between 0 and 1.
8. reasoning: one sentence explaining the classification.

Return format:
{
    "renamed_filename": "...",
    "description": "...",
    "abstract": "...",
    "cleaned_content": "...",
    "collection_type": "...",
    "metadata": {},
    "confidence": 0.0,
    "reasoning": "..."
}

Output only the JSON object, no other text.`

func buildPrompt(content, filename string) string {
	if strings.TrimSpace(filename) == "" {
		filename = "unknown"
	}
	return fmt.Sprintf(promptTemplate, content, filename)
}
