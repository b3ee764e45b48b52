package chunker

import (
	"strings"
	"testing"
)

// TestChunk_EmptyInput verifies blank input is rejected.
func TestChunk_EmptyInput(t *testing.T) {
	c := New(DefaultConfig())

	for _, input := range []string{"", "   ", "\n\t\n"} {
		if _, err := c.Chunk(input); err != ErrEmptyInput {
			t.Errorf("Chunk(%q): expected ErrEmptyInput, got %v", input, err)
		}
	}
}

// TestChunk_SmallInput verifies text under the chunk size becomes exactly
// one chunk spanning the whole input.
func TestChunk_SmallInput(t *testing.T) {
	c := New(DefaultConfig())
	input := "A short paragraph that fits in one chunk."

	chunks, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != input {
		t.Errorf("Chunk content: expected full input, got %q", chunks[0].Content)
	}
	if chunks[0].Start != 0 || chunks[0].End != len(input) {
		t.Errorf("Chunk span: expected [0,%d), got [%d,%d)", len(input), chunks[0].Start, chunks[0].End)
	}
}

// TestChunk_CountAndSpans verifies a ~2500 char document with size 1000 and
// overlap 200 produces 3-4 chunks with exact, ordered spans.
func TestChunk_CountAndSpans(t *testing.T) {
	var b strings.Builder
	for b.Len() < 2500 {
		b.WriteString("The quick brown fox jumps over the lazy dog near the river bank. ")
	}
	input := b.String()[:2500]

	c := New(Config{ChunkSize: 1000, ChunkOverlap: 200, MinChunkSize: 100})
	chunks, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	if len(chunks) < 3 || len(chunks) > 4 {
		t.Errorf("Expected 3-4 chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("Chunk %d: index is %d", i, ch.Index)
		}
		if input[ch.Start:ch.End] != ch.Content {
			t.Errorf("Chunk %d: content does not match its span", i)
		}
		if i > 0 && ch.Start <= chunks[i-1].Start {
			t.Errorf("Chunk %d: start %d not after previous start %d", i, ch.Start, chunks[i-1].Start)
		}
	}

	// First chunk starts the document, last chunk ends it.
	if chunks[0].Start != 0 {
		t.Errorf("First chunk starts at %d", chunks[0].Start)
	}
	if chunks[len(chunks)-1].End != len(input) {
		t.Errorf("Last chunk ends at %d, want %d", chunks[len(chunks)-1].End, len(input))
	}
}

// TestChunk_OverlapBounds verifies adjacent chunks share at most
// ChunkOverlap characters and the overlap begins on a word boundary.
func TestChunk_OverlapBounds(t *testing.T) {
	var b strings.Builder
	for b.Len() < 5000 {
		b.WriteString("Each sentence in this stream carries a handful of ordinary words. ")
	}
	input := b.String()

	overlap := 200
	c := New(Config{ChunkSize: 1000, ChunkOverlap: overlap, MinChunkSize: 100})
	chunks, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		shared := chunks[i-1].End - chunks[i].Start
		if shared > overlap {
			t.Errorf("Chunks %d/%d share %d chars, overlap limit is %d", i-1, i, shared, overlap)
		}
		if start := chunks[i].Start; start > 0 && shared > 0 {
			if prev := input[start-1]; prev != ' ' && prev != '\t' && prev != '\n' {
				t.Errorf("Chunk %d starts mid-word at %d (%q before)", i, start, prev)
			}
		}
	}
}

// TestChunk_NoBoundaries verifies an unbroken run of characters is
// hard-split, capping every chunk at 1.5x the chunk size.
func TestChunk_NoBoundaries(t *testing.T) {
	input := strings.Repeat("a", 3500)

	size := 1000
	c := New(Config{ChunkSize: size, ChunkOverlap: 200, MinChunkSize: 100})
	chunks, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	limit := size + size/2
	for i, ch := range chunks {
		if n := len(ch.Content); n > limit {
			t.Errorf("Chunk %d has %d chars, cap is %d", i, n, limit)
		}
	}
	if chunks[len(chunks)-1].End != len(input) {
		t.Errorf("Last chunk ends at %d, want %d", chunks[len(chunks)-1].End, len(input))
	}
}

// TestChunk_FinalFragmentFlushed verifies a trailing fragment below
// MinChunkSize is still emitted rather than dropped.
func TestChunk_FinalFragmentFlushed(t *testing.T) {
	body := strings.Repeat("Sentences fill the first chunk with plenty of text to spare. ", 20)
	tail := "Tiny tail."
	input := body + "\n\n" + tail

	c := New(Config{ChunkSize: 1000, ChunkOverlap: 0, MinChunkSize: 100})
	chunks, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	last := chunks[len(chunks)-1]
	if !strings.Contains(last.Content, tail) {
		t.Errorf("Trailing fragment lost: last chunk is %q", last.Content)
	}
	if last.End != len(input) {
		t.Errorf("Last chunk ends at %d, want %d", last.End, len(input))
	}
}

// TestChunk_Reconstruction verifies that with zero overlap the chunks
// concatenate back to the original text.
func TestChunk_Reconstruction(t *testing.T) {
	var b strings.Builder
	for b.Len() < 4000 {
		b.WriteString("Reconstruction requires spans that tile the document exactly.\n\n")
	}
	input := b.String()

	c := New(Config{ChunkSize: 1000, ChunkOverlap: 0, MinChunkSize: 100})
	chunks, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}

	var rebuilt strings.Builder
	for i, ch := range chunks {
		if i > 0 && ch.Start != chunks[i-1].End {
			t.Fatalf("Gap between chunks %d and %d: %d != %d", i-1, i, chunks[i-1].End, ch.Start)
		}
		rebuilt.WriteString(ch.Content)
	}
	if rebuilt.String() != input {
		t.Errorf("Concatenated chunks differ from input")
	}
}

// TestChunk_ExtremeOverlap verifies spans stay strictly ordered and
// within the overlap bound even when the overlap is nearly the whole
// chunk size, where the overlap window reaches back across entire
// previous chunks.
func TestChunk_ExtremeOverlap(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	var b strings.Builder
	for i := 0; b.Len() < 2000; i++ {
		b.WriteString(words[i%len(words)])
		b.WriteByte(' ')
	}
	input := b.String()

	configs := []Config{
		{ChunkSize: 100, ChunkOverlap: 90},
		{ChunkSize: 50, ChunkOverlap: 49},
	}
	for _, cfg := range configs {
		c := New(cfg)
		chunks, err := c.Chunk(input)
		if err != nil {
			t.Fatalf("Chunk (size %d, overlap %d) failed: %v", cfg.ChunkSize, cfg.ChunkOverlap, err)
		}
		if len(chunks) < 2 {
			t.Fatalf("Expected multiple chunks, got %d", len(chunks))
		}

		limit := cfg.ChunkSize + cfg.ChunkSize/2
		seen := make(map[[2]int]bool)
		for i, ch := range chunks {
			if input[ch.Start:ch.End] != ch.Content {
				t.Errorf("Size %d: chunk %d content does not match its span", cfg.ChunkSize, i)
			}
			if n := len(ch.Content); n > limit {
				t.Errorf("Size %d: chunk %d has %d chars, cap is %d", cfg.ChunkSize, i, n, limit)
			}
			if seen[[2]int{ch.Start, ch.End}] {
				t.Errorf("Size %d: duplicate span [%d,%d) at chunk %d", cfg.ChunkSize, ch.Start, ch.End, i)
			}
			seen[[2]int{ch.Start, ch.End}] = true
			if i == 0 {
				continue
			}
			if ch.Start <= chunks[i-1].Start {
				t.Errorf("Size %d: chunk %d start %d not after previous start %d",
					cfg.ChunkSize, i, ch.Start, chunks[i-1].Start)
			}
			if shared := chunks[i-1].End - ch.Start; shared > cfg.ChunkOverlap {
				t.Errorf("Size %d: chunks %d/%d share %d chars, overlap limit is %d",
					cfg.ChunkSize, i-1, i, shared, cfg.ChunkOverlap)
			}
		}
		if chunks[0].Start != 0 {
			t.Errorf("Size %d: first chunk starts at %d", cfg.ChunkSize, chunks[0].Start)
		}
		if chunks[len(chunks)-1].End != len(input) {
			t.Errorf("Size %d: last chunk ends at %d, want %d",
				cfg.ChunkSize, chunks[len(chunks)-1].End, len(input))
		}
	}
}

// TestChunk_RechunkStability verifies chunking is stable under its own
// output: re-chunking the chunk contents joined back with single spaces
// lands the same sentences in the same chunks.
func TestChunk_RechunkStability(t *testing.T) {
	input := strings.Repeat("The quick brown fox jumps over the lazy dog near the river bank. ", 36)

	c := New(Config{ChunkSize: 300, ChunkOverlap: 0, MinChunkSize: 50})
	first, err := c.Chunk(input)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(first) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(first))
	}

	contents := make([]string, len(first))
	for i, ch := range first {
		contents[i] = ch.Content
	}
	second, err := c.Chunk(strings.Join(contents, " "))
	if err != nil {
		t.Fatalf("Re-chunk failed: %v", err)
	}

	if len(second) != len(first) {
		t.Fatalf("Re-chunk produced %d chunks, first pass produced %d", len(second), len(first))
	}
	for i := range first {
		a := strings.Join(strings.Fields(first[i].Content), " ")
		b := strings.Join(strings.Fields(second[i].Content), " ")
		if a != b {
			t.Errorf("Chunk %d drifted on re-chunk:\nfirst:  %q\nsecond: %q", i, a, b)
		}
	}
}

// TestNew_ConfigClamping verifies invalid config values fall back to
// workable defaults.
func TestNew_ConfigClamping(t *testing.T) {
	c := New(Config{ChunkSize: 100, ChunkOverlap: 150, MinChunkSize: 500})
	if c.cfg.ChunkOverlap >= c.cfg.ChunkSize {
		t.Errorf("Overlap %d not clamped below size %d", c.cfg.ChunkOverlap, c.cfg.ChunkSize)
	}
	if c.cfg.MinChunkSize > c.cfg.ChunkSize {
		t.Errorf("MinChunkSize %d not clamped below size %d", c.cfg.MinChunkSize, c.cfg.ChunkSize)
	}

	c = New(Config{})
	if c.cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("Zero config: expected default size %d, got %d", DefaultChunkSize, c.cfg.ChunkSize)
	}
	if len(c.cfg.Separators) == 0 {
		t.Errorf("Zero config: separators not defaulted")
	}
}
