package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextYieldsSingleChunk(t *testing.T) {
	text := "Python, Docker and five years of backend work."
	chunks := Split(text, Policy{Size: 196, Overlap: 30})
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Fatalf("expected chunk to equal input, got %q", chunks[0])
	}
}

func TestSplitEmptyTextYieldsNoChunks(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		if chunks := Split(text, Policy{Size: 128, Overlap: 10}); len(chunks) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("One sentence here. Another sentence follows. ", 40)
	policy := Policy{Size: 128, Overlap: 10}

	first := Split(text, policy)
	second := Split(text, policy)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "First paragraph with some content in it.\n\n" +
		"Second paragraph that is long enough to push the total past the limit.\n\n" +
		"Third paragraph closing things out."
	chunks := Split(text, Policy{Size: 90, Overlap: 0})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Fatalf("chunk not trimmed: %q", c)
		}
	}
}

func TestSplitOverlapCarriesLastUnit(t *testing.T) {
	text := "Alpha sentence one.\n\nBeta sentence two.\n\nGamma sentence three.\n\nDelta sentence four."
	chunks := Split(text, Policy{Size: 45, Overlap: 20})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		lastUnit := prev[strings.LastIndex(prev, "\n\n")+2:]
		if !strings.Contains(chunks[i], strings.TrimSpace(lastUnit)) && !strings.HasPrefix(chunks[i], strings.TrimSpace(lastUnit)) {
			t.Fatalf("chunk %d does not repeat the previous boundary unit", i)
		}
	}
}

func TestSplitWindowsOversizedRuns(t *testing.T) {
	// No sentence or paragraph boundaries at all.
	text := strings.Repeat("x", 500)
	chunks := Split(text, Policy{Size: 100, Overlap: 20})

	if len(chunks) < 4 {
		t.Fatalf("expected sliding windows, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 100 {
			t.Fatalf("chunk %d exceeds window size: %d runes", i, utf8.RuneCountInString(c))
		}
	}
}

func TestSplitHandlesCJKSentences(t *testing.T) {
	text := strings.Repeat("这是一个用于测试的中文句子。", 30)
	chunks := Split(text, Policy{Size: 64, Overlap: 8})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for long CJK text, got %d", len(chunks))
	}
}
