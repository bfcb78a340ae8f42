package render

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindEmoji identifies emoji shortcode nodes in the goldmark AST.
var KindEmoji = ast.NewNodeKind("Emoji")

// EmojiNode is an inline node holding a resolved emoji shortcode.
type EmojiNode struct {
	ast.BaseInline
	Name string
	Src  string
}

// Kind implements ast.Node.
func (n *EmojiNode) Kind() ast.NodeKind {
	return KindEmoji
}

// Dump implements ast.Node.
func (n *EmojiNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Name": n.Name,
		"Src":  n.Src,
	}, nil)
}

// Extension turns `:name:` shortcodes into emoji img tags for every
// name the Index knows. Unknown shortcodes pass through as literal
// text.
type Extension struct {
	index *Index
}

// NewExtension creates a goldmark extension backed by idx.
func NewExtension(idx *Index) *Extension {
	return &Extension{index: idx}
}

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&shortcodeParser{index: e.index}, 999),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&emojiHTMLRenderer{}, 999),
	))
}

type shortcodeParser struct {
	index *Index
}

func (p *shortcodeParser) Trigger() []byte {
	return []byte{':'}
}

func (p *shortcodeParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()

	// line starts at the opening colon; the name runs to the closing
	// colon on the same line.
	end := -1
	for i := 1; i < len(line); i++ {
		c := line[i]
		if c == ':' {
			end = i
			break
		}
		if !isShortcodeChar(c) {
			return nil
		}
	}
	if end < 2 {
		return nil
	}

	name := string(line[1:end])
	src, ok := p.index.Lookup(name)
	if !ok {
		return nil
	}

	block.Advance(end + 1)
	return &EmojiNode{Name: name, Src: src}
}

func isShortcodeChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '+' || c == '-':
		return true
	}
	return false
}

type emojiHTMLRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *emojiHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindEmoji, r.render)
}

func (r *emojiHTMLRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*EmojiNode)
	fmt.Fprintf(w, `<img class="emoji" src="%s" alt="%s" title=":%s:">`,
		util.EscapeHTML([]byte(n.Src)), n.Name, n.Name)
	return ast.WalkContinue, nil
}
