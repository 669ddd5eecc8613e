package docs

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// BlockKind is the type of a top-level Markdown block.
type BlockKind string

const (
	KindParagraph     BlockKind = "paragraph"
	KindHeading       BlockKind = "heading"
	KindFencedCode    BlockKind = "fenced_code"
	KindCode          BlockKind = "code"
	KindList          BlockKind = "list"
	KindBlockquote    BlockKind = "blockquote"
	KindThematicBreak BlockKind = "thematic_break"
	KindHTML          BlockKind = "html"
	KindOther         BlockKind = "other"
)

// Block is one top-level block of a parsed document.
type Block struct {
	Kind BlockKind
	// Info is the info string of a fenced code block, trimmed.
	Info string
	// Level is the heading level, zero for other kinds.
	Level int
	// Text is the raw source text of the block. For code blocks it is the
	// content between the fences, line endings included.
	Text string
	// Line is the 1-based source line the block starts on, 0 if unknown.
	Line int
}

// newMarkdown returns the goldmark engine used for structured parsing.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// Parse parses source with a CommonMark grammar and returns its top-level
// blocks in document order.
func Parse(source []byte) ([]Block, error) {
	doc := newMarkdown().Parser().Parse(text.NewReader(source))

	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = append(blocks, toBlock(n, source))
	}
	return blocks, nil
}

// CodeBlocks returns the fenced code blocks whose whole info string equals
// lang, in document order, so "go title=x" is not a "go" block. An empty lang
// selects every fenced block.
func CodeBlocks(blocks []Block, lang string) []Block {
	lang = strings.TrimSpace(lang)
	var out []Block
	for _, b := range blocks {
		if b.Kind != KindFencedCode {
			continue
		}
		if lang != "" && b.Info != lang {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Texts returns the text of each block.
func Texts(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Text
	}
	return out
}

func toBlock(n ast.Node, source []byte) Block {
	b := Block{
		Kind: kindOf(n),
		Text: blockText(n, source),
		Line: startLine(n, source),
	}
	switch node := n.(type) {
	case *ast.FencedCodeBlock:
		if node.Info != nil {
			b.Info = strings.TrimSpace(string(node.Info.Segment.Value(source)))
		}
	case *ast.Heading:
		b.Level = node.Level
	}
	return b
}

func kindOf(n ast.Node) BlockKind {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return KindParagraph
	case *ast.Heading:
		return KindHeading
	case *ast.FencedCodeBlock:
		return KindFencedCode
	case *ast.CodeBlock:
		return KindCode
	case *ast.List:
		return KindList
	case *ast.Blockquote:
		return KindBlockquote
	case *ast.ThematicBreak:
		return KindThematicBreak
	case *ast.HTMLBlock:
		return KindHTML
	default:
		return KindOther
	}
}

// blockText concatenates the source lines of n and of its block descendants.
func blockText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || node.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func startLine(n ast.Node, source []byte) int {
	start := -1
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || node.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if lines := node.Lines(); lines.Len() > 0 {
			start = lines.At(0).Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if start < 0 {
		return 0
	}
	line := bytes.Count(source[:start], []byte("\n")) + 1
	if _, ok := n.(*ast.FencedCodeBlock); ok {
		// Content starts on the line after the opening fence.
		line--
	}
	return line
}
