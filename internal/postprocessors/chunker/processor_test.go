package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom chunk size", func(t *testing.T) {
		p := New(WithChunkSize(500))
		if p.chunkSize != 500 {
			t.Errorf("expected chunkSize 500, got %d", p.chunkSize)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(100))
		if p.overlap != 100 {
			t.Errorf("expected overlap 100, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap != 25 {
			t.Errorf("expected overlap reduced to 25, got %d", p.overlap)
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected default chunkSize, got %d", p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestSplit_EmptyContent(t *testing.T) {
	p := New()
	for _, text := range []string{"", "   ", "\n\t \r\n"} {
		if chunks := p.Split(text, "empty.pdf"); len(chunks) != 0 {
			t.Errorf("expected 0 chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestSplit_SmallContent(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	chunks := p.Split("This is a  small\npiece of content.", "small.pdf")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small content, got %d", len(chunks))
	}

	c := chunks[0]
	if c.Text != "This is a small piece of content." {
		t.Errorf("unexpected text %q", c.Text)
	}
	if c.Metadata.Source != "small.pdf" {
		t.Errorf("expected source small.pdf, got %s", c.Metadata.Source)
	}
	if c.Metadata.ChunkIndex != 0 {
		t.Errorf("expected chunk index 0, got %d", c.Metadata.ChunkIndex)
	}
	if c.Metadata.WordCount != 7 {
		t.Errorf("expected word count 7, got %d", c.Metadata.WordCount)
	}
	if c.Metadata.CharCount != 27 {
		t.Errorf("expected char count 27, got %d", c.Metadata.CharCount)
	}
}

// scenarioText is 600 four-letter words with a trailing "s": exactly 3000 characters.
func scenarioText() string {
	return strings.TrimSpace(strings.Repeat("word ", 600)) + "s"
}

func TestSplit_ThreeThousandCharacters(t *testing.T) {
	text := scenarioText()
	if len(text) != 3000 {
		t.Fatalf("fixture should be 3000 characters, got %d", len(text))
	}

	chunks := New(WithChunkSize(1000), WithOverlap(200)).Split(text, "scenario.txt")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Metadata.ChunkIndex != i {
			t.Errorf("expected chunk index %d, got %d", i, c.Metadata.ChunkIndex)
		}
		if c.Metadata.CharCount > 1000 {
			t.Errorf("chunk %d exceeds budget: %d", i, c.Metadata.CharCount)
		}
	}

	wantWords := []int{250, 250, 200}
	for i, want := range wantWords {
		if chunks[i].Metadata.WordCount != want {
			t.Errorf("chunk %d: expected %d words, got %d", i, want, chunks[i].Metadata.WordCount)
		}
	}
}

func TestSplit_OverlapContinuity(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), 1+i%9))
		b.WriteString(" ")
	}

	chunks := New(WithChunkSize(120), WithOverlap(30)).Split(b.String(), "mixed.pdf")
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i := 0; i < len(chunks)-1; i++ {
		prev := strings.Fields(chunks[i].Text)
		next := strings.Fields(chunks[i+1].Text)

		shared := 0
		for n := 1; n < len(prev) && n <= len(next); n++ {
			if strings.Join(prev[len(prev)-n:], " ") == strings.Join(next[:n], " ") {
				shared = n
			}
		}
		if shared == 0 {
			t.Errorf("chunks %d and %d share no overlap", i, i+1)
		}
		if wordsLength(next[:shared]) > 30 && shared > 1 {
			t.Errorf("overlap between %d and %d exceeds budget", i, i+1)
		}
	}
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks := New(WithChunkSize(10), WithOverlap(0)).Split("aaaaa bbbbb ccccc ddddd", "x.txt")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "aaaaa bbbbb" || chunks[1].Text != "ccccc ddddd" {
		t.Errorf("unexpected chunks %q, %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestSplit_OversizedWord(t *testing.T) {
	long := strings.Repeat("z", 50)
	chunks := New(WithChunkSize(20), WithOverlap(5)).Split("ab cd "+long+" ef", "long.txt")

	found := false
	for _, c := range chunks {
		if strings.Contains(c.Text, long) {
			found = true
			if c.Text != long {
				t.Errorf("oversized word should stand alone, got %q", c.Text)
			}
		}
	}
	if !found {
		t.Error("oversized word was dropped")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	text := scenarioText()

	first := p.Split(text, "a.pdf")
	second := p.Split(text, "a.pdf")

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Text != second[i].Text {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_UniqueIDs(t *testing.T) {
	chunks := New(WithChunkSize(100), WithOverlap(20)).Split(scenarioText(), "a.pdf")

	seen := make(map[string]bool)
	for _, c := range chunks {
		if seen[c.ID] {
			t.Errorf("duplicate chunk ID: %s", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestChunkID(t *testing.T) {
	base := ChunkID("a.pdf", 0, "hello world")

	if ChunkID("a.pdf", 0, "hello world") != base {
		t.Error("same inputs should give same ID")
	}
	if ChunkID("b.pdf", 0, "hello world") == base {
		t.Error("source should affect ID")
	}
	if ChunkID("a.pdf", 1, "hello world") == base {
		t.Error("index should affect ID")
	}

	prefix := strings.Repeat("p", 50)
	if ChunkID("a.pdf", 0, prefix+"one") != ChunkID("a.pdf", 0, prefix+"two") {
		t.Error("only the first 50 characters should feed the ID")
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(100))
	doc := &domain.Document{Source: "doc.pdf", Content: "New content to chunk"}

	existing := []domain.Chunk{{ID: "existing", Text: "should be ignored"}}
	chunks, err := p.Process(context.Background(), doc, existing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID == "existing" {
		t.Fatalf("expected one new chunk, got %+v", chunks)
	}
	if chunks[0].Metadata.Source != "doc.pdf" {
		t.Errorf("expected source doc.pdf, got %s", chunks[0].Metadata.Source)
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Process(ctx, &domain.Document{Content: "text"}, nil)
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}
