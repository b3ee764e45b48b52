// Package chunker splits document text into overlapping, size-bounded
// chunks along natural language boundaries. Plain text goes through the
// recursive separator splitter directly; markdown is pre-split at header
// boundaries first (see markdown.go).
package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyInput is returned when the input text is blank after trimming.
var ErrEmptyInput = errors.New("empty input text")

const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of trailing characters shared
	// between adjacent chunks.
	DefaultChunkOverlap = 200

	// DefaultMinChunkSize is the smallest chunk worth emitting on its own;
	// smaller buffers are carried into the next fragment.
	DefaultMinChunkSize = 100
)

// DefaultSeparators orders split tiers from coarse to fine: paragraph
// break, line break, sentence terminators, then word boundary.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", "! ", "? ", " "}
}

// Chunk is one bounded segment of a document. Start and End are byte
// offsets into the original text, so spans are exactly reconstructible.
type Chunk struct {
	Content    string
	Index      int
	Start      int
	End        int
	HeaderPath string // set by the markdown pre-split, empty for plain text
}

// Config controls chunk sizing and boundary selection.
type Config struct {
	ChunkSize     int
	ChunkOverlap  int
	MinChunkSize  int
	Separators    []string
	KeepSeparator bool
}

// DefaultConfig returns the standard chunking configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		MinChunkSize:  DefaultMinChunkSize,
		Separators:    DefaultSeparators(),
		KeepSeparator: true,
	}
}

// Chunker splits text according to its Config.
type Chunker struct {
	cfg Config
}

// New creates a Chunker, filling zero config fields with defaults and
// clamping overlap below chunk size.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 4
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.MinChunkSize > cfg.ChunkSize {
		cfg.MinChunkSize = cfg.ChunkSize / 2
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultSeparators()
		// Spans must tile the document; dropping separators would leave
		// gaps between chunks.
		cfg.KeepSeparator = true
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits text into ordered, 0-indexed chunks. Returns ErrEmptyInput
// when the text is blank after normalization.
func (c *Chunker) Chunk(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	chunks := c.chunkRange(text, 0)
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, nil
}

// span is a half-open [Start, End) range into the original text.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// chunkRange chunks text and offsets all spans by base. The markdown
// pre-split uses base to keep section spans anchored to the full document.
func (c *Chunker) chunkRange(text string, base int) []Chunk {
	fragments := c.split(text, span{0, len(text)}, 0)
	merged := c.merge(text, fragments)

	chunks := make([]Chunk, 0, len(merged))
	for _, s := range merged {
		chunks = append(chunks, Chunk{
			Content: text[s.start:s.end],
			Start:   base + s.start,
			End:     base + s.end,
		})
	}
	return chunks
}

// split recursively applies separator tiers. A fragment within the size
// budget is emitted as-is; oversized fragments move to the next finer tier.
// Fragments that survive every tier oversized are handled by the hard
// split during merge.
func (c *Chunker) split(text string, s span, tier int) []span {
	if s.len() <= c.cfg.ChunkSize || tier >= len(c.cfg.Separators) {
		return []span{s}
	}

	sep := c.cfg.Separators[tier]

	var out []span
	cursor := s.start
	for {
		idx := strings.Index(text[cursor:s.end], sep)
		if idx < 0 {
			break
		}
		pieceEnd := cursor + idx
		if c.cfg.KeepSeparator {
			pieceEnd += len(sep)
		}
		if pieceEnd > cursor {
			out = append(out, c.split(text, span{cursor, pieceEnd}, tier+1)...)
		}
		cursor += idx + len(sep)
	}
	if cursor < s.end {
		out = append(out, c.split(text, span{cursor, s.end}, tier+1)...)
	}

	if len(out) == 0 {
		return []span{s}
	}
	return out
}

// merge greedily accumulates fragments into chunk-sized buffers. When a
// fragment would overflow the buffer, the buffer is flushed (if it meets
// the minimum size, otherwise carried forward) and the next buffer is
// seeded with the trailing overlap of the flushed chunk, trimmed to a word
// boundary so no word is split.
func (c *Chunker) merge(text string, fragments []span) []span {
	var out []span

	emit := func(s span) {
		out = append(out, c.hardSplit(text, s)...)
	}

	cur := span{start: -1}
	for _, f := range fragments {
		if cur.start < 0 {
			cur = f
			continue
		}
		if f.end-cur.start <= c.cfg.ChunkSize {
			cur.end = f.end
			continue
		}
		if cur.len() >= c.cfg.MinChunkSize {
			emit(cur)
			// Seed past the start of the last emitted chunk, which may
			// sit beyond cur.start when the buffer was hard-split.
			floor := out[len(out)-1].start
			cur = span{start: c.overlapStart(text, cur, floor), end: f.end}
		} else {
			// Undersized buffer rides along with the next fragment.
			cur.end = f.end
		}
	}
	// The final buffer is always flushed, even below the minimum, so no
	// trailing text is lost.
	if cur.start >= 0 && cur.len() > 0 {
		emit(cur)
	}

	return out
}

// overlapStart computes where the next chunk begins so that it shares at
// most ChunkOverlap trailing characters with the flushed chunk. The start
// is advanced to the nearest following word boundary. floor is the start
// of the last emitted chunk; the seed always lands strictly past it so
// chunk starts increase monotonically even when the overlap window
// reaches back across an entire previous chunk.
func (c *Chunker) overlapStart(text string, flushed span, floor int) int {
	if c.cfg.ChunkOverlap <= 0 {
		return flushed.end
	}
	start := flushed.end - c.cfg.ChunkOverlap
	if start < flushed.start {
		start = flushed.start
	}
	if start <= floor {
		start = floor + 1
	}
	if start >= flushed.end {
		return flushed.end
	}
	// Already on a word boundary.
	if isBoundary(text[start-1]) {
		return start
	}
	if idx := strings.IndexAny(text[start:flushed.end], " \t\n"); idx >= 0 {
		return start + idx + 1
	}
	// No boundary inside the overlap window: skip the overlap entirely
	// rather than split a word.
	return flushed.end
}

// hardSplit caps any chunk still exceeding 1.5x the size budget by cutting
// on the nearest word or sentence boundary within the tail half of the
// budget. Every cut strictly advances the start, so this terminates.
func (c *Chunker) hardSplit(text string, s span) []span {
	limit := c.cfg.ChunkSize + c.cfg.ChunkSize/2

	var out []span
	for s.len() > limit {
		cut := c.cutPoint(text, s)
		out = append(out, span{s.start, cut})
		s = span{c.overlapStart(text, span{s.start, cut}, s.start), s.end}
	}
	out = append(out, s)
	return out
}

// cutPoint picks a split position at most ChunkSize past the start,
// backing up to a sentence or word boundary but never into the first half
// of the budget.
func (c *Chunker) cutPoint(text string, s span) int {
	target := s.start + c.cfg.ChunkSize
	floor := s.start + c.cfg.ChunkSize/2

	// Prefer a sentence end, then any whitespace.
	for pos := target; pos > floor; pos-- {
		if pos < s.end && isSentenceEnd(text, pos) {
			return pos
		}
	}
	for pos := target; pos > floor; pos-- {
		if pos < s.end && isBoundary(text[pos-1]) {
			return pos
		}
	}

	// No boundary at all; cut at the budget without splitting a rune.
	cut := target
	for cut > floor && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

// isSentenceEnd reports whether position pos directly follows a sentence
// terminator and its trailing space.
func isSentenceEnd(text string, pos int) bool {
	if pos < 2 {
		return false
	}
	prev, punct := text[pos-1], text[pos-2]
	return prev == ' ' && (punct == '.' || punct == '!' || punct == '?')
}
