package chunker

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MarkdownChunker pre-splits markdown at H1/H2 boundaries so chunks never
// straddle sections, then applies the recursive splitter to each section.
// Every chunk carries the header hierarchy it belongs to.
type MarkdownChunker struct {
	parser  goldmark.Markdown
	chunker *Chunker
}

// NewMarkdownChunker wraps a Chunker with markdown section awareness.
func NewMarkdownChunker(c *Chunker) *MarkdownChunker {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &MarkdownChunker{parser: md, chunker: c}
}

// section is a header-delimited region of the source document.
type section struct {
	headerPath string
	start, end int
}

// Chunk splits markdown into chunks. Documents without headers fall back
// to plain recursive splitting. Spans stay anchored to the full source.
func (m *MarkdownChunker) Chunk(source string) ([]Chunk, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyInput
	}

	src := []byte(source)
	reader := text.NewReader(src)
	doc := m.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, src,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect toc: %w", err)
	}

	if len(tree.Items) == 0 {
		return m.chunker.Chunk(source)
	}

	var sections []section
	collectSections(doc, src, tree.Items, nil, &sections)

	var chunks []Chunk
	for _, sec := range sections {
		body := source[sec.start:sec.end]
		if strings.TrimSpace(body) == "" {
			continue
		}
		for _, ch := range m.chunker.chunkRange(body, sec.start) {
			ch.HeaderPath = sec.headerPath
			chunks = append(chunks, ch)
		}
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks, nil
}

// collectSections walks TOC items depth-first, recording each header's
// content region and hierarchy path. A parent's region ends where its
// first child heading begins.
func collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, out *[]section) {
	for i, item := range items {
		path := append(append([]string{}, ancestors...), string(item.Title))

		headerNode := findHeaderByID(doc, string(item.ID))
		if headerNode == nil {
			continue
		}

		start := headerNode.Lines().At(0).Start
		end := len(source)
		if i+1 < len(items) {
			if next := findHeaderByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0).Start
			}
		} else {
			level := headerNode.(*ast.Heading).Level
			if boundary := nextHeadingAtOrAbove(doc, headerNode, level); boundary >= 0 {
				end = boundary
			}
		}

		// The section's own text stops where its first child section starts.
		ownEnd := end
		if len(item.Items) > 0 {
			if child := findHeaderByID(doc, string(item.Items[0].ID)); child != nil {
				ownEnd = child.Lines().At(0).Start
			}
		}

		*out = append(*out, section{
			headerPath: strings.Join(path, " > "),
			start:      start,
			end:        ownEnd,
		})

		if len(item.Items) > 0 {
			collectSections(doc, source, item.Items, path, out)
		}
	}
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextHeadingAtOrAbove returns the source offset of the first heading after
// current whose level is the same or higher, or -1 if none exists.
func nextHeadingAtOrAbove(root ast.Node, current ast.Node, level int) int {
	offset := -1
	foundCurrent := false

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !foundCurrent {
			if n == current {
				foundCurrent = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			offset = n.Lines().At(0).Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return offset
}
