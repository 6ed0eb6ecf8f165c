// Package chunker splits document text into retrieval-sized units. Each
// collection brings its own policy, so resumes end up in short precise
// chunks while project write-ups keep larger narrative blocks.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Policy is the (size, overlap) pair a collection prescribes for its
// documents. Sizes are measured in runes. Overlap must be smaller than
// Size; the registry enforces that at load time.
type Policy struct {
	Size    int
	Overlap int
}

var sentencePattern = regexp.MustCompile(`[^.!?。！？\n]+[.!?。！？]?`)

// Split breaks text into ordered chunks honoring the policy. It prefers
// paragraph boundaries, falls back to sentence boundaries for oversized
// paragraphs, and slides a fixed window over any sentence that still
// exceeds the chunk size. Deterministic for identical input; empty text
// yields no chunks, text shorter than the chunk size yields exactly one.
func Split(text string, policy Policy) []string {
	clean := strings.ReplaceAll(text, "\r\n", "\n")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}
	if policy.Size <= 0 {
		return []string{clean}
	}
	if utf8.RuneCountInString(clean) <= policy.Size {
		return []string{clean}
	}

	units := splitUnits(clean, policy)

	chunks := make([]string, 0)
	current := make([]string, 0)
	currentLen := 0

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if currentLen+unitLen > policy.Size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			if policy.Overlap > 0 {
				// Carry the last unit forward so a concept spanning the
				// boundary stays visible to both neighbors.
				last := current[len(current)-1]
				current = []string{last}
				currentLen = utf8.RuneCountInString(last)
			} else {
				current = current[:0]
				currentLen = 0
			}
		}
		current = append(current, unit)
		currentLen += unitLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}

// splitUnits produces boundary-respecting pieces that each fit within the
// policy size.
func splitUnits(text string, policy Policy) []string {
	units := make([]string, 0)
	for _, paragraph := range strings.Split(text, "\n\n") {
		p := strings.TrimSpace(paragraph)
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) <= policy.Size {
			units = append(units, p)
			continue
		}
		for _, sentence := range splitSentences(p) {
			if utf8.RuneCountInString(sentence) <= policy.Size {
				units = append(units, sentence)
				continue
			}
			units = append(units, slideWindow(sentence, policy)...)
		}
	}
	return units
}

func splitSentences(paragraph string) []string {
	matches := sentencePattern.FindAllString(paragraph, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return []string{paragraph}
	}
	return sentences
}

// slideWindow cuts a run of text with no usable boundaries into fixed
// windows, repeating Overlap runes between consecutive windows.
func slideWindow(text string, policy Policy) []string {
	runes := []rune(text)
	step := policy.Size - policy.Overlap
	if step <= 0 {
		step = policy.Size
	}

	windows := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + policy.Size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
